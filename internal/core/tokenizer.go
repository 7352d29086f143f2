package core

// tokenizer.go turns raw CSV text into rows of raw fields.
//
// The scanner is deliberately forgiving: it never fails. Quoted fields may span
// physical lines, a doubled quote inside quotes is a literal quote, and an
// unterminated quote simply closes at end of input. Deciding whether the result
// is acceptable is the RowValidator's job.

import "strings"

// Row is an ordered sequence of field values.
type Row []string

// Record is a tokenized row together with the 1-based physical line it started on.
type Record struct {
	Line   int
	Fields Row
}

// tokenizer holds the only mutable state of the scan.
type tokenizer struct {
	field     strings.Builder
	inQuotes  bool
	row       Row
	startLine int
	records   []Record

	// keepEmpty keeps rows whose fields are all empty.
	keepEmpty bool
}

// Tokenize splits text into rows. Rows with no non-empty field are dropped
// and rows may have different widths.
func Tokenize(text string) []Row {
	records := TokenizeRecords(text)
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = rec.Fields
	}
	return rows
}

// TokenizeRecords is Tokenize with source line numbers attached.
func TokenizeRecords(text string) []Record {
	return (&tokenizer{}).scan(text)
}

func (t *tokenizer) scan(text string) []Record {
	lines := strings.Split(text, "\n")

	for n, line := range lines {
		if !t.inQuotes {
			t.startLine = n + 1
		}
		t.scanLine(line)

		if t.inQuotes {
			t.field.WriteByte('\n')
			continue
		}
		t.endRow()
	}

	// Unterminated quote: whatever was buffered becomes the last field.
	if t.inQuotes || t.field.Len() > 0 || len(t.row) > 0 {
		t.endRow()
	}

	return t.records
}

// scanLine consumes one physical line. Quote and comma are ASCII, so a
// byte-wise scan is safe for UTF-8 input.
func (t *tokenizer) scanLine(line string) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if t.inQuotes && i+1 < len(line) && line[i+1] == '"' {
				t.field.WriteByte('"')
				i++
				continue
			}
			t.inQuotes = !t.inQuotes
		case c == ',' && !t.inQuotes:
			t.endField()
		default:
			t.field.WriteByte(c)
		}
	}
}

func (t *tokenizer) endField() {
	t.row = append(t.row, strings.TrimSpace(t.field.String()))
	t.field.Reset()
}

func (t *tokenizer) endRow() {
	t.endField()
	if t.keepEmpty || hasContent(t.row) {
		t.records = append(t.records, Record{Line: t.startLine, Fields: t.row})
	}
	t.row = nil
	t.inQuotes = false
}

func hasContent(row Row) bool {
	for _, f := range row {
		if f != "" {
			return true
		}
	}
	return false
}
