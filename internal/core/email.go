package core

import "strings"

// EmailRules configures NormalizeEmail. Suffixes include the leading dot and
// are compared case-insensitively.
type EmailRules struct {
	AllowedTLDs []string
	Corrections map[string]string

	allowed map[string]bool
	fixes   map[string]string
}

// DefaultEmailRules is built from DefaultAllowedTLDs and DefaultTLDCorrections.
var DefaultEmailRules = NewEmailRules(DefaultAllowedTLDs, DefaultTLDCorrections)

// NewEmailRules builds a rule set. Nil arguments fall back to the defaults.
func NewEmailRules(allowed []string, corrections map[string]string) *EmailRules {
	if allowed == nil {
		allowed = DefaultAllowedTLDs
	}
	if corrections == nil {
		corrections = DefaultTLDCorrections
	}

	r := &EmailRules{
		AllowedTLDs: allowed,
		Corrections: corrections,
		allowed:     make(map[string]bool, len(allowed)),
		fixes:       make(map[string]string, len(corrections)),
	}
	for _, tld := range allowed {
		r.allowed[strings.ToLower(tld)] = true
	}
	for typo, fix := range corrections {
		r.fixes[strings.ToLower(typo)] = fix
	}
	return r
}

// Merge returns a copy of r extended with extra allowed suffixes and
// corrections. Entries in the arguments win over existing ones.
func (r *EmailRules) Merge(allowed []string, corrections map[string]string) *EmailRules {
	all := append(append([]string{}, r.AllowedTLDs...), allowed...)
	fixes := make(map[string]string, len(r.Corrections)+len(corrections))
	for k, v := range r.Corrections {
		fixes[k] = v
	}
	for k, v := range corrections {
		fixes[k] = v
	}
	return NewEmailRules(all, fixes)
}

// NormalizeEmail repairs a mistyped top-level domain using DefaultEmailRules.
func NormalizeEmail(email string) string {
	return DefaultEmailRules.Normalize(email)
}

// Normalize repairs a mistyped top-level domain ("a@b.con" -> "a@b.com").
// Anything it does not recognise is returned unchanged and left to
// IsValidEmail to judge.
func (r *EmailRules) Normalize(email string) string {
	if strings.Count(email, "@") != 1 {
		return email
	}
	at := strings.IndexByte(email, '@')
	local, domain := email[:at], email[at+1:]
	if domain == "" {
		return email
	}

	dot := strings.LastIndexByte(domain, '.')
	if dot < 0 {
		return email
	}
	suffix := strings.ToLower(domain[dot:])

	if r.allowed[suffix] {
		return email
	}

	fix, ok := r.fixes[suffix]
	if !ok {
		fix, ok = r.fixes[strings.TrimSuffix(suffix, ",")]
	}
	if !ok {
		return email
	}

	return local + "@" + domain[:dot] + fix
}
