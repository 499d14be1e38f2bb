package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalEngine/internal/domain/models"
)

func obs(closes ...float64) []models.PriceObservation {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	out := make([]models.PriceObservation, 0, len(closes))
	for i, c := range closes {
		out = append(out, models.PriceObservation{Date: start.AddDate(0, 0, i), Close: c})
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	rets := ComputeLogReturns(obs(100, 110, 99))
	require.Len(t, rets, 2)
	assert.InDelta(t, math.Log(1.1), rets[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), rets[1], 1e-12)

	assert.Nil(t, ComputeLogReturns(obs(100)))
	assert.Nil(t, ComputeLogReturns(nil))
}

func TestComputeLogReturnsSkipsBadCloses(t *testing.T) {
	rets := ComputeLogReturns(obs(100, 0, 110))
	require.Len(t, rets, 2)
	assert.Zero(t, rets[0])
	assert.Zero(t, rets[1])
}

func TestTrailingReturn(t *testing.T) {
	ret, ok := TrailingReturn(obs(100, 101, 102, 110), 3)
	require.True(t, ok)
	assert.InDelta(t, 0.10, ret, 1e-12)

	_, ok = TrailingReturn(obs(100, 110), 3)
	assert.False(t, ok)

	_, ok = TrailingReturn(obs(0, 100, 110), 2)
	assert.False(t, ok, "non-positive base price")

	_, ok = TrailingReturn(obs(100, 110), 0)
	assert.False(t, ok)
}

func sentAt(t time.Time, score float64) models.SentimentRecord {
	return models.SentimentRecord{Timestamp: t, Score: score}
}

func TestMeanSentimentWindowing(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 10)
	recs := []models.SentimentRecord{
		sentAt(from.AddDate(0, 0, -1), 1.0), // outside
		sentAt(from.AddDate(0, 0, 2), 0.4),
		sentAt(from.AddDate(0, 0, 8), -0.2),
		sentAt(to.AddDate(0, 0, 1), -1.0), // outside
	}

	mean, ok := MeanSentiment(recs, from, to)
	require.True(t, ok)
	assert.InDelta(t, 0.1, mean, 1e-12)

	_, ok = MeanSentiment(recs, to.AddDate(0, 1, 0), to.AddDate(0, 2, 0))
	assert.False(t, ok)
}

func TestSentimentTrend(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 10)
	recs := []models.SentimentRecord{
		sentAt(from.AddDate(0, 0, 1), -0.4),
		sentAt(from.AddDate(0, 0, 2), -0.2),
		sentAt(from.AddDate(0, 0, 8), 0.3),
		sentAt(from.AddDate(0, 0, 9), 0.5),
	}

	trend, ok := SentimentTrend(recs, from, to)
	require.True(t, ok)
	assert.InDelta(t, 0.7, trend, 1e-12)

	// Empty second half: no trend.
	_, ok = SentimentTrend(recs[:2], from, to)
	assert.False(t, ok)
}

func TestDailyMeanSentiment(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	recs := []models.SentimentRecord{
		sentAt(day.Add(9*time.Hour), 0.2),
		sentAt(day.Add(15*time.Hour), 0.6),
		sentAt(day.AddDate(0, 0, 1).Add(10*time.Hour), -0.5),
	}

	means := DailyMeanSentiment(recs)
	require.Len(t, means, 2)
	assert.InDelta(t, 0.4, means[0], 1e-12)
	assert.InDelta(t, -0.5, means[1], 1e-12)

	assert.Nil(t, DailyMeanSentiment(nil))
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}

	coef, ok := Pearson(xs, []float64{2, 4, 6, 8, 10})
	require.True(t, ok)
	assert.InDelta(t, 1.0, coef, 1e-12)

	coef, ok = Pearson(xs, []float64{10, 8, 6, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, coef, 1e-12)

	coef, ok = Pearson([]float64{1, 2, 3, 4}, []float64{1, 3, 2, 4})
	require.True(t, ok)
	assert.Greater(t, coef, 0.0)
	assert.Less(t, coef, 1.0)
}

func TestPearsonDegenerateInputs(t *testing.T) {
	_, ok := Pearson([]float64{1, 2}, []float64{1})
	assert.False(t, ok, "length mismatch")

	_, ok = Pearson([]float64{1}, []float64{1})
	assert.False(t, ok, "too few points")

	_, ok = Pearson([]float64{3, 3, 3}, []float64{1, 2, 3})
	assert.False(t, ok, "zero variance")
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 0.25, Clamp01(0.25))
	assert.Equal(t, 1.0, Clamp01(1.7))
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1, Sign(0.001))
	assert.Equal(t, -1, Sign(-3))
	assert.Equal(t, 0, Sign(0))
}
