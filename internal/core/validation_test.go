package core

import (
	"reflect"
	"testing"
)

func TestRowValidator_Validate(t *testing.T) {
	roles := ColumnRoles{Email: 1, Phone: 2}

	tests := []struct {
		name       string
		row        Row
		wantRow    Row
		wantReason RejectReason
		wantPhone  bool
	}{
		{
			name:    "clean row accepted",
			row:     Row{"Ada", "ada@x.com", "+1 (415) 555-2671"},
			wantRow: Row{"Ada", "ada@x.com", "+1 (415) 555-2671"},
		},
		{
			name:       "too few fields",
			row:        Row{"Ada", "ada@x.com"},
			wantReason: RejectFieldCount,
		},
		{
			name:       "too many fields",
			row:        Row{"Ada", "ada@x.com", "", "extra"},
			wantReason: RejectFieldCount,
		},
		{
			name:    "email typo repaired",
			row:     Row{"Ada", "ada@x.con", ""},
			wantRow: Row{"Ada", "ada@x.com", ""},
		},
		{
			name:       "invalid email rejected",
			row:        Row{"Bob", "not-an-email", ""},
			wantReason: RejectInvalidEmail,
		},
		{
			name:       "empty email rejected",
			row:        Row{"Bob", "", ""},
			wantReason: RejectInvalidEmail,
		},
		{
			name:      "short phone cleared, row kept",
			row:       Row{"Bob", "bob@x.com", "123"},
			wantRow:   Row{"Bob", "bob@x.com", ""},
			wantPhone: true,
		},
		{
			name:    "fields cleaned",
			row:     Row{` "Cy" `, "cy@x.com,", ",4155552671"},
			wantRow: Row{"Cy", "cy@x.com", "4155552671"},
		},
		{
			name:       "unbalanced quote rejected",
			row:        Row{`Dee "the`, "dee@x.com", ""},
			wantReason: RejectMalformedQuotes,
		},
		{
			name:       "quote followed by comma rejected",
			row:        Row{`a "b" c, d`, "dee@x.com", ""},
			wantReason: RejectMalformedQuotes,
		},
		{
			name:    "escaped quotes balanced",
			row:     Row{`say ""hi`, "dee@x.com", ""},
			wantRow: Row{`say ""hi`, "dee@x.com", ""},
		},
	}

	v := NewRowValidator(3, roles, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.row)

			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Accepted() != (tt.wantReason == "") {
				t.Errorf("Accepted() = %v, want %v", got.Accepted(), tt.wantReason == "")
			}
			if !reflect.DeepEqual(got.Row, tt.wantRow) {
				t.Errorf("Row = %q, want %q", got.Row, tt.wantRow)
			}
			if got.PhoneCleared != tt.wantPhone {
				t.Errorf("PhoneCleared = %v, want %v", got.PhoneCleared, tt.wantPhone)
			}
		})
	}
}

func TestRowValidator_NoRoles(t *testing.T) {
	v := NewRowValidator(2, ColumnRoles{Email: NoColumn, Phone: NoColumn}, nil)

	got := v.Validate(Row{"anything", "123"})

	if !got.Accepted() {
		t.Fatalf("row rejected: %s", got.Reason)
	}
	if want := (Row{"anything", "123"}); !reflect.DeepEqual(got.Row, want) {
		t.Errorf("Row = %q, want %q", got.Row, want)
	}
}

func TestHasMalformedQuotes(t *testing.T) {
	tests := []struct {
		field string
		want  bool
	}{
		{"plain", false},
		{`a""b`, false},
		{`a"b`, true},
		{`a"b"c`, false},
		{`,x"y"`, true},
		{`x"y",z`, true},
		{`x,y`, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := hasMalformedQuotes(tt.field); got != tt.want {
				t.Errorf("hasMalformedQuotes(%q) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestSerialize(t *testing.T) {
	rows := []Row{
		{"name", "note"},
		{"Ada", "x, y"},
		{"Bob", `say "hi"`},
		{"Cy", "two\nlines"},
		{"Dee", ""},
	}

	want := "name,note\nAda,\"x, y\"\nBob,\"say \"\"hi\"\"\"\nCy,\"two\nlines\"\nDee,"

	if got := Serialize(rows); got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
	if got := Tokenize(want); !reflect.DeepEqual(got, rows) {
		t.Errorf("Tokenize(Serialize()) = %q, want %q", got, rows)
	}
	if got := Serialize(nil); got != "" {
		t.Errorf("Serialize(nil) = %q, want empty", got)
	}
}
