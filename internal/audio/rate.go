package audio

import "fmt"

// rateSteps are the rates offered by StepRate.
var rateSteps = []float64{
	0.5,  // Half speed
	0.75, // Three-quarter speed
	1.0,  // Normal speed
	1.25, // Quarter faster
	1.5,  // Half faster
	1.75, // Three-quarter faster
	2.0,  // Double speed
}

// StepRate returns the next rate step above (up) or below current.
// At either end the current rate is returned unchanged.
func StepRate(current float64, up bool) float64 {
	if up {
		for _, r := range rateSteps {
			if r > current {
				return r
			}
		}
		return current
	}

	for i := len(rateSteps) - 1; i >= 0; i-- {
		if rateSteps[i] < current {
			return rateSteps[i]
		}
	}
	return current
}

// RateLabel returns a human-readable rate description.
func RateLabel(rate float64) string {
	switch rate {
	case 0.5:
		return "0.5x (Half Speed)"
	case 0.75:
		return "0.75x (Slow)"
	case 1.0:
		return "1.0x (Normal)"
	case 1.25:
		return "1.25x (Fast)"
	case 1.5:
		return "1.5x (Faster)"
	case 1.75:
		return "1.75x (Very Fast)"
	case 2.0:
		return "2.0x (Double Speed)"
	default:
		return fmt.Sprintf("%.2fx", rate)
	}
}
