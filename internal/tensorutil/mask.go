// Package tensorutil implements the numeric building blocks shared by the
// text indexer and the inference orchestrator: validity masks and latent
// sampling. It has no dependency on the ONNX runtime bindings — callers wrap
// its plain float32 slices into *onnx.Tensor values at the call site.
package tensorutil

// LengthToMask produces a batched validity mask: for each length L_i, a row
// of size maxLen with min(L_i, maxLen) leading ones and the remainder zero.
// The result is shaped [B, 1, maxLen] to match the mask tensor layout used
// throughout the pipeline.
func LengthToMask(lengths []int, maxLen int) [][][]float32 {
	out := make([][][]float32, len(lengths))

	for i, l := range lengths {
		row := make([]float32, maxLen)

		n := l
		if n > maxLen {
			n = maxLen
		}

		for j := 0; j < n; j++ {
			row[j] = 1.0
		}

		out[i] = [][]float32{row}
	}

	return out
}

// FlattenMask flattens a [B,1,maxLen] mask into row-major contiguous order,
// matching the layout expected by onnx.NewTensor.
func FlattenMask(mask [][][]float32) []float32 {
	var total int
	for _, b := range mask {
		for _, row := range b {
			total += len(row)
		}
	}

	flat := make([]float32, 0, total)
	for _, b := range mask {
		for _, row := range b {
			flat = append(flat, row...)
		}
	}

	return flat
}
