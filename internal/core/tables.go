package core

// tables.go holds the lookup data used by the email normalizer and the column
// role detection. These are data, not logic: extend them here or override
// them per pipeline with WithEmailRules / WithColumnHints.

// DefaultAllowedTLDs are suffixes that are never "corrected", even when they
// look like a typo of a more common one (.co vs .com).
var DefaultAllowedTLDs = []string{
	".co", ".io", ".org", ".net", ".edu", ".gov", ".mil", ".int",
	".uk", ".us", ".ca", ".au", ".in", ".de", ".fr", ".jp", ".cn",
}

// DefaultTLDCorrections maps frequent top-level-domain typos to their fix.
var DefaultTLDCorrections = map[string]string{
	".con":  ".com",
	".cmo":  ".com",
	".comn": ".com",
	".comm": ".com",
	".coom": ".com",
	".com,": ".com",
	".or":   ".org",
	".ogr":  ".org",
	".ne":   ".net",
	".net,": ".net",
}

// ColumnHints lists the substrings that mark a column as the email or phone
// column. Matching is case-insensitive and the first matching column wins.
type ColumnHints struct {
	Email []string
	Phone []string
}

// DefaultColumnHints is the column role heuristic used when none is configured.
var DefaultColumnHints = ColumnHints{
	Email: []string{"email"},
	Phone: []string{"phone", "mobile", "contact"},
}
