package features

import (
	"math"
	"time"

	"SignalEngine/internal/domain/models"
)

// ComputeLogReturns computes daily log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(bars)-1, or nil if insufficient data.
func ComputeLogReturns(bars []models.PriceObservation) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// TrailingReturn computes the simple return over the last n bars:
// C_last / C_{last-n} - 1. Returns (0, false) when there is not enough
// history or the base price is non-positive.
func TrailingReturn(bars []models.PriceObservation, n int) (float64, bool) {
	if n <= 0 || len(bars) < n+1 {
		return 0, false
	}
	base := bars[len(bars)-1-n].Close
	last := bars[len(bars)-1].Close
	if base <= 0 {
		return 0, false
	}
	return last/base - 1, true
}

// MeanSentiment averages sentiment scores within [from, to]. The bool is
// false when no records fall inside the window.
func MeanSentiment(recs []models.SentimentRecord, from, to time.Time) (float64, bool) {
	sum := 0.0
	n := 0
	for _, r := range recs {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		sum += r.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// SentimentTrend compares the mean score of the second half of the window
// against the first half. Positive means sentiment is improving. The bool
// is false when either half is empty.
func SentimentTrend(recs []models.SentimentRecord, from, to time.Time) (float64, bool) {
	mid := from.Add(to.Sub(from) / 2)
	first, ok1 := MeanSentiment(recs, from, mid)
	second, ok2 := MeanSentiment(recs, mid, to)
	if !ok1 || !ok2 {
		return 0, false
	}
	return second - first, true
}

// DailyMeanSentiment buckets sentiment records by UTC calendar day and
// returns per-day means ordered by day. Days without records are omitted.
func DailyMeanSentiment(recs []models.SentimentRecord) []float64 {
	if len(recs) == 0 {
		return nil
	}
	type agg struct {
		sum float64
		n   int
	}
	byDay := make(map[time.Time]*agg)
	days := make([]time.Time, 0, len(recs)/2+1)
	for _, r := range recs {
		day := r.Timestamp.UTC().Truncate(24 * time.Hour)
		a, ok := byDay[day]
		if !ok {
			a = &agg{}
			byDay[day] = a
			days = append(days, day)
		}
		a.sum += r.Score
		a.n++
	}
	// records arrive ordered by timestamp, so days is already ascending
	out := make([]float64, 0, len(days))
	for _, d := range days {
		a := byDay[d]
		out = append(out, a.sum/float64(a.n))
	}
	return out
}

// Pearson computes the Pearson correlation coefficient of two equal-length
// series. Returns (0, false) for mismatched lengths, fewer than two points,
// or zero variance in either series.
func Pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0, false
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)
	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Sign returns -1, 0, or 1.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
