package text

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/supertonic-tts/internal/tensorutil"
)

// UnknownToken is emitted for code points outside the indexer table's range.
const UnknownToken int64 = -1

// Indexer maps normalized text to token IDs via a fixed codepoint lookup
// table loaded from the asset root's unicode_indexer.json.
type Indexer struct {
	table []int64
}

// LoadIndexer reads the flat int64 codepoint table from path.
func LoadIndexer(path string) (*Indexer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read codepoint indexer table: %w", err)
	}

	var table []int64
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode codepoint indexer table: %w", err)
	}

	return &Indexer{table: table}, nil
}

// Index NFKC-normalizes each string of a batch and converts it into
// right-padded token ID rows and their validity masks, per §4.1.
//
// Each row of tokenIDs has length maxLen (the longest input after padding with
// trailing 0); mask[i][0] carries 1.0 for the first n_i positions, where n_i
// is the codepoint count of texts[i] after NFKC, and 0.0 afterward. Code points beyond the table's length map to -1.
func (ix *Indexer) Index(texts []string) (tokenIDs [][]int64, mask [][][]float32) {
	if len(texts) == 0 {
		return nil, nil
	}

	rows := make([][]int64, len(texts))
	lengths := make([]int, len(texts))
	maxLen := 0

	for i, t := range texts {
		normalized := NFKC(t)

		row := make([]int64, 0, len(normalized))
		for _, cp := range normalized {
			row = append(row, ix.lookup(cp))
		}

		rows[i] = row
		lengths[i] = len(row)
		if len(row) > maxLen {
			maxLen = len(row)
		}
	}

	tokenIDs = make([][]int64, len(texts))
	for i, row := range rows {
		padded := make([]int64, maxLen)
		copy(padded, row)
		tokenIDs[i] = padded
	}

	mask = tensorutil.LengthToMask(lengths, maxLen)

	return tokenIDs, mask
}

func (ix *Indexer) lookup(cp rune) int64 {
	idx := int(cp)
	if idx < 0 || idx >= len(ix.table) {
		return UnknownToken
	}

	return ix.table[idx]
}
