//go:build fastmath

package param

import (
	"math"

	"github.com/cwbudde/algo-microdelay/dsp/core"
	"github.com/meko-christian/algo-approx"
)

// dbToGainBlock converts dB values to linear gain in place using a fast
// exponential approximation: 10^(db/20) = e^(db*ln(10)/20).
func dbToGainBlock(buf []float64) {
	const dbToNeper = math.Ln10 / 20
	for i, db := range buf {
		if db <= core.SilenceFloorDB {
			buf[i] = 0
			continue
		}
		buf[i] = approx.FastExp(db * dbToNeper)
	}
}
