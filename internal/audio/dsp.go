package audio

import "math"

// PeakNormalize scales samples so the peak absolute amplitude reaches 1.0.
// Silent input (peak == 0) is returned unchanged.
func PeakNormalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if abs := float32(math.Abs(float64(s))); abs > peak {
			peak = abs
		}
	}

	if peak == 0 {
		return samples
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}

	return out
}

// dcBlockPole sets the one-pole high-pass cutoff used by DCBlock; closer to
// 1 pushes the cutoff frequency lower.
const dcBlockPole = 0.995

// DCBlock removes DC offset with a one-pole high-pass filter:
// y[n] = x[n] - x[n-1] + pole*y[n-1]. sampleRate is accepted for interface
// symmetry with the other shaping hooks; the pole is fixed rather than
// derived from it.
func DCBlock(samples []float32, sampleRate int) []float32 {
	out := make([]float32, len(samples))

	var prevIn, prevOut float32
	for i, s := range samples {
		y := s - prevIn + dcBlockPole*prevOut
		out[i] = y
		prevIn = s
		prevOut = y
	}

	return out
}

// FadeIn applies a linear fade-in ramp over the given duration in milliseconds.
func FadeIn(samples []float32, sampleRate int, ms float64) []float32 {
	n := fadeSampleCount(sampleRate, ms, len(samples))
	if n == 0 {
		return samples
	}

	out := append([]float32(nil), samples...)
	for i := 0; i < n; i++ {
		out[i] *= float32(i) / float32(n)
	}

	return out
}

// FadeOut applies a linear fade-out ramp over the given duration in milliseconds.
func FadeOut(samples []float32, sampleRate int, ms float64) []float32 {
	n := fadeSampleCount(sampleRate, ms, len(samples))
	if n == 0 {
		return samples
	}

	out := append([]float32(nil), samples...)
	last := len(out) - 1
	for i := 0; i < n; i++ {
		out[last-i] *= float32(i) / float32(n)
	}

	return out
}

func fadeSampleCount(sampleRate int, ms float64, total int) int {
	if sampleRate <= 0 || ms <= 0 {
		return 0
	}

	n := int(float64(sampleRate) * ms / 1000.0)
	if n > total {
		n = total
	}

	return n
}
