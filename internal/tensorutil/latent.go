package tensorutil

import (
	"math"
	"math/rand/v2"
)

// boxMullerEpsilon floors the first uniform draw away from zero so log(u1)
// never diverges, per §4.5.
const boxMullerEpsilon = 1e-4

// Rand is the minimal randomness source SampleLatent needs. *rand.Rand from
// math/rand/v2 satisfies it; tests can inject a seeded instance for
// reproducible output.
type Rand interface {
	Float64() float64
}

// NewRand returns the production-default uniform source (a PCG generator
// seeded non-deterministically) from which SampleLatent draws its Gaussian
// noise, matching the teacher's use of math/rand/v2.
func NewRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// LatentSample is the output of SampleLatent: the initial noisy latent and
// its validity mask, both ready to flatten into *onnx.Tensor values.
type LatentSample struct {
	Data       []float32 // row-major [B, DLatentV, LatentLen]
	Shape      []int64   // [B, DLatentV, LatentLen]
	Mask       [][][]float32
	LatentLen  int
	DLatentV   int
	Lengths    []int // latent_lengths per batch item
	WavLengths []int // wav_lengths per batch item, for truncation downstream
}

// SampleLatent draws the initial flow-matching latent from Gaussian noise and
// derives the latent-length mask from the (speed-scaled) predicted duration,
// per §4.5.
func SampleLatent(duration []float32, sampleRate, baseChunkSize, chunkCompressFactor, latentDim int, rng Rand) LatentSample {
	b := len(duration)
	chunkSize := baseChunkSize * chunkCompressFactor
	dLatentV := latentDim * chunkCompressFactor

	wavLengths := make([]int, b)
	maxDuration := float32(0)

	for i, d := range duration {
		wavLengths[i] = int(math.Floor(float64(d) * float64(sampleRate)))
		if d > maxDuration {
			maxDuration = d
		}
	}

	wavLenMax := int(math.Floor(float64(maxDuration) * float64(sampleRate)))
	latentLen := ceilDiv(wavLenMax, chunkSize)
	if latentLen < 1 {
		latentLen = 1
	}

	latentLengths := make([]int, b)
	for i, wl := range wavLengths {
		latentLengths[i] = ceilDiv(wl, chunkSize)
	}

	mask := LengthToMask(latentLengths, latentLen)

	total := b * dLatentV * latentLen
	data := make([]float32, total)

	for i := 0; i < b; i++ {
		rowMask := mask[i][0]
		for d := 0; d < dLatentV; d++ {
			base := (i*dLatentV + d) * latentLen
			for l := 0; l < latentLen; l++ {
				if rowMask[l] == 0 {
					data[base+l] = 0
					continue
				}
				data[base+l] = boxMuller(rng)
			}
		}
	}

	return LatentSample{
		Data:       data,
		Shape:      []int64{int64(b), int64(dLatentV), int64(latentLen)},
		Mask:       mask,
		LatentLen:  latentLen,
		DLatentV:   dLatentV,
		Lengths:    latentLengths,
		WavLengths: wavLengths,
	}
}

// boxMuller draws one standard-normal sample using the Box-Muller transform.
func boxMuller(rng Rand) float32 {
	u1 := rng.Float64()
	if u1 < boxMullerEpsilon {
		u1 = boxMullerEpsilon
	}
	u2 := rng.Float64()

	return float32(math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2))
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
