package core

// input.go turns an uploaded file into the text the pipeline works on.
//
// Real-world exports arrive with a UTF-8 BOM (Excel on Windows), CRLF line
// endings, and the occasional invalid byte from a legacy encoding. These are
// fixed here, before tokenizing, so the tokenizer only ever sees "\n"-separated
// valid UTF-8.

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrFileTooLarge is returned when the input exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoInput is returned when no reader was supplied.
	ErrNoInput = errors.New("no file provided")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadInput reads all of r as CSV text. Input longer than limit bytes (when
// limit > 0) fails with ErrFileTooLarge. A leading BOM is dropped, CRLF and
// lone CR line endings become "\n", and invalid UTF-8 becomes U+FFFD.
func ReadInput(r io.Reader, limit int64) (string, error) {
	if r == nil {
		return "", ErrNoInput
	}

	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, limit)
	}

	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return text, nil
}
