package core

import "strings"

// CleanField removes punctuation artifacts left behind by sloppy exports:
// surrounding whitespace, a stray leading or trailing comma, and quoting that
// the tokenizer did not consume. Whether the value needs quoting again is
// decided by Serialize.
//
// The repairs are repeated until the value is stable, so CleanField is
// idempotent.
func CleanField(field string) string {
	for {
		next := cleanFieldOnce(field)
		if next == field {
			return next
		}
		field = next
	}
}

func cleanFieldOnce(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, ",") {
		s = strings.TrimSpace(s[1:])
	}

	if len(s) > 1 && s[0] == '"' && s[len(s)-1] == '"' {
		inner := s[1 : len(s)-1]
		// A field that swallowed its separator: "value,"
		return strings.TrimSpace(strings.TrimSuffix(inner, ","))
	}

	if strings.HasSuffix(s, ",") {
		s = strings.TrimSpace(s[:len(s)-1])
	}

	return s
}

// CleanRow applies CleanField to every field and returns a new row.
func CleanRow(row Row) Row {
	out := make(Row, len(row))
	for i, f := range row {
		out[i] = CleanField(f)
	}
	return out
}
