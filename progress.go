package ferry

import "github.com/meigma/ferry/core"

// ProgressSample is a cumulative progress report.
// Re-exported from core package.
type ProgressSample = core.ProgressSample

// UnknownSize is the total reported while the size is not known.
const UnknownSize = core.UnknownSize

// Fraction returns transferred/total in [0, 1]. It reports false when the
// total is unknown.
func Fraction(total, transferred int64) (float64, bool) {
	switch {
	case total < 0:
		return 0, false
	case total == 0:
		return 1, true
	case transferred >= total:
		return 1, true
	case transferred <= 0:
		return 0, true
	default:
		return float64(transferred) / float64(total), true
	}
}
