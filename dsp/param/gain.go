//go:build !fastmath

package param

import "github.com/cwbudde/algo-microdelay/dsp/core"

// dbToGainBlock converts dB values to linear gain in place.
func dbToGainBlock(buf []float64) {
	for i, db := range buf {
		buf[i] = core.DBToGain(db)
	}
}
