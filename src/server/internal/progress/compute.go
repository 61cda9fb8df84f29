package progress

import (
	"fmt"
	"math"
	"time"
)

const rateEpsilon = 1e-8

type Stats struct {
	N        float64
	Total    float64
	Fraction float64
	// Elapsed and ETA are in seconds.
	Elapsed float64
	ETA     float64
	Rate    float64
}

// Compute derives the completion fraction, ETA and rate for n of total
// units done after elapsed. ETA is 0 until some progress exists.
func Compute(n float64, total float64, elapsed time.Duration) Stats {
	seconds := math.Max(elapsed.Seconds(), 0)

	fraction := 0.0
	if total > 0 {
		fraction = math.Min(math.Max(n/total, 0), 1)
	}

	eta := 0.0
	if fraction > 0 {
		eta = math.Max(seconds/fraction-seconds, 0)
	}

	return Stats{
		N:        n,
		Total:    total,
		Fraction: fraction,
		Elapsed:  seconds,
		ETA:      eta,
		Rate:     n / (seconds + rateEpsilon),
	}
}

func (s Stats) Format(desc string, unit string) string {
	return fmt.Sprintf("%s: %d%% | Elapsed: %.1fs | ETA: %.1fs | %s/s: %.1f",
		desc, int(s.Fraction*100), s.Elapsed, s.ETA, unit, s.Rate)
}
