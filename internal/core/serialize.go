package core

import "strings"

// Serialize renders rows as CSV text: fields joined by commas, rows by "\n",
// no trailing newline. A field is quoted, with inner quotes doubled, only when
// it contains a comma, a quote or a newline.
func Serialize(rows []Row) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, f := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			writeField(&b, f)
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, f string) {
	if !strings.ContainsAny(f, ",\"\n") {
		b.WriteString(f)
		return
	}
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(f, `"`, `""`))
	b.WriteByte('"')
}

// ParseOutput reads text produced by Serialize back into rows. Unlike
// Tokenize it keeps rows whose fields are all empty, so
// ParseOutput(Serialize(rows)) returns rows unchanged.
func ParseOutput(text string) []Row {
	if text == "" {
		return nil
	}
	t := &tokenizer{keepEmpty: true}
	records := t.scan(text)
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = rec.Fields
	}
	return rows
}
