package param

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-microdelay/dsp/core"
)

// displayFloorDB is the level below which a dB value is shown as -inf.
const displayFloorDB = -100.0

// FormatDecibel renders a level as "dB = percent", e.g. "-6.00dB = 50.12%".
func FormatDecibel(db float64) string {
	shown := db
	if db < displayFloorDB {
		shown = math.Inf(-1)
	}
	return fmt.Sprintf("%.2fdB = %.2f%%", shown, core.DBToPercent(db))
}

// FormatMicroseconds renders a delay time, e.g. "1000 microsec".
func FormatMicroseconds(us float64) string {
	return fmt.Sprintf("%.0f microsec", us)
}

func formatterFor(unit Unit) func(float64) string {
	switch unit {
	case UnitDecibel:
		return FormatDecibel
	case UnitMicroseconds:
		return FormatMicroseconds
	default:
		return func(v float64) string { return fmt.Sprintf("%.3f", v) }
	}
}
