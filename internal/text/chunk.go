package text

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxChunkChars is the default greedy-packing budget used by Chunk
// when the caller does not override it.
const DefaultMaxChunkChars = 300

// abbreviations never trigger a sentence split on the period that follows
// them, even though that period is itself a sentence terminator.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "ph.d": true, "etc": true, "e.g": true,
	"i.e": true, "vs": true, "inc": true, "ltd": true, "co": true,
	"corp": true, "st": true, "ave": true, "blvd": true,
}

var blankLineSplit = regexp.MustCompile(`\n\s*\n+`)

// Chunk splits text into bounded sentence groups suitable for a single
// inference pass, per §4.2: paragraph split on blank lines, abbreviation- and
// initial-aware sentence split, then greedy packing to maxChars.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	var chunks []string

	for _, para := range splitParagraphs(text) {
		chunks = append(chunks, packSentences(splitSentences(para), maxChars)...)
	}

	return chunks
}

func splitParagraphs(text string) []string {
	raw := blankLineSplit.Split(text, -1)

	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// splitSentences splits a paragraph into sentences on whitespace following a
// `.`, `!`, or `?`, unless the terminator is `.` and is preceded by a known
// abbreviation or a single uppercase initial (e.g. "J. Smith").
func splitSentences(text string) []string {
	var sentences []string

	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// A terminator only ends a sentence if followed by whitespace or EOF.
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if r == '.' && isAbbreviationBoundary(runes, start, i) {
			continue
		}

		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

// isAbbreviationBoundary reports whether the word ending at the period index
// i (within runes[start:i+1]) is a recognized abbreviation or a single
// uppercase initial.
func isAbbreviationBoundary(runes []rune, start, periodIdx int) bool {
	wordStart := periodIdx
	for wordStart > start && !unicode.IsSpace(runes[wordStart-1]) {
		wordStart--
	}

	word := strings.ToLower(string(runes[wordStart:periodIdx]))
	if abbreviations[word] {
		return true
	}

	// Single uppercase letter immediately before the period: an initial.
	if periodIdx-wordStart == 1 && unicode.IsUpper(runes[wordStart]) {
		return true
	}

	return false
}

// packSentences greedily packs sentences into chunks bounded by maxChars,
// joining consecutive sentences with a single space.
func packSentences(sentences []string, maxChars int) []string {
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len() == 0 {
			current.WriteString(s)
			continue
		}

		if current.Len()+1+len(s) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(s)
		} else {
			current.WriteByte(' ')
			current.WriteString(s)
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
