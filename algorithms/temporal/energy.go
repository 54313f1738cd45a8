package temporal

import (
	"math"
)

// RMS calculates the root mean square level of a frame of samples.
// Returns 0 for an empty frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, s := range frame {
		sumSquares += s * s
	}

	return math.Sqrt(sumSquares / float64(len(frame)))
}

// Peak returns the maximum absolute sample value of a frame.
func Peak(frame []float64) float64 {
	peak := 0.0
	for _, s := range frame {
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
	}
	return peak
}
