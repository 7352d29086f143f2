package core

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"ada@example.com", true},
		{"first.last+tag@sub.example.co.uk", true},
		{"", false},
		{"   ", false},
		{"no-at-sign.com", false},
		{"two@@example.com", false},
		{"a@b@example.com", false},
		{"@example.com", false},
		{"ada@", false},
		{"ada@localhost", false},
		{"ada@.example.com", false},
		{"ada@example.com.", false},
		{"ada @example.com", false},
		{"ada@exa mple.com", false},
		{"ada@example.com\n", false},
		{"ada@example.", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidPhoneNumber(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+1 (415) 555-2671", true},
		{"4155552671", true},
		{"415.555.2671", true},
		{"123456789012345", true},
		{"12345", false},
		{"123456789", false},
		{"1234567890123456", false},
		{"", false},
		{"  ", false},
		{"415-555-CALL", false},
		{"415/555/2671", false},
		{"ext 4155552671", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := IsValidPhoneNumber(tt.phone); got != tt.want {
				t.Errorf("IsValidPhoneNumber(%q) = %v, want %v", tt.phone, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a@b.con", "a@b.com"},
		{"a@b.CMO", "a@b.com"},
		{"a@b.comm", "a@b.com"},
		{"a@b.com,", "a@b.com"},
		{"a@b.con,", "a@b.com"},
		{"a@b.ogr", "a@b.org"},
		{"a@b.or", "a@b.org"},
		{"a@b.ne", "a@b.net"},
		{"a@mail.b.coom", "a@mail.b.com"},
		{"a@b.io", "a@b.io"},
		{"a@b.co", "a@b.co"},
		{"a@b.UK", "a@b.UK"},
		{"a@b.com", "a@b.com"},
		{"a@b.xyz", "a@b.xyz"},
		{"a@localhost", "a@localhost"},
		{"a@", "a@"},
		{"not-an-email", "not-an-email"},
		{"a@b@c.con", "a@b@c.con"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeEmail(tt.in); got != tt.want {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmailRules_Merge(t *testing.T) {
	rules := DefaultEmailRules.Merge([]string{".dev"}, map[string]string{".cpm": ".com", ".dve": ".dev"})

	tests := []struct {
		in   string
		want string
	}{
		{"a@b.cpm", "a@b.com"},
		{"a@b.dve", "a@b.dev"},
		{"a@b.con", "a@b.com"},
	}
	for _, tt := range tests {
		if got := rules.Normalize(tt.in); got != tt.want {
			t.Errorf("merged Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	// The defaults are untouched.
	if got := NormalizeEmail("a@b.cpm"); got != "a@b.cpm" {
		t.Errorf("NormalizeEmail(a@b.cpm) = %q, defaults were modified", got)
	}
}
