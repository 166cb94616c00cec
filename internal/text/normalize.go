package text

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize trims surrounding whitespace, normalizes line endings to \n, and
// rejects empty or whitespace-only input. This runs once over the raw request
// text, before chunking; per-chunk codepoint normalization happens separately
// in Indexer (NFKC, per §4.1).
func Normalize(s string) (string, error) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

// NFKC applies Unicode canonical compatibility composition to s — the
// "canonical compatibility-composed form" the codepoint indexer requires
// before table lookup.
func NFKC(s string) string {
	return norm.NFKC.String(s)
}
