package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalEngine/internal/domain/models"
)

func barsAround(symbol string, cycle, target time.Time, baseClose, finalClose float64) []models.PriceObservation {
	return []models.PriceObservation{
		{Symbol: symbol, Date: cycle, Close: baseClose},
		{Symbol: symbol, Date: target, Close: finalClose},
	}
}

func newEvalFixture(t *testing.T) (*EvaluationCycle, *memPredictionStore, *memResultStore, *memSignalStore) {
	t.Helper()
	results := newMemResultStore()
	predictions := newMemPredictionStore(results)
	signals := newMemSignalStore()
	eval := NewEvaluationCycle(predictions, signals, results, results, nopMetrics{}, testEngineConfig(t), testLogger(t))
	return eval, predictions, results, signals
}

func TestEvaluateSubNoiseMoveIsFlat(t *testing.T) {
	eval, predictions, results, signals := newEvalFixture(t)
	ctx := context.Background()

	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	pred := models.Prediction{
		ID: "p1", Symbol: "AAPL", CycleDate: cycle, TargetDate: target,
		HorizonDays: 5, Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.8,
	}
	require.NoError(t, predictions.AppendPrediction(ctx, pred))
	// +0.05% move is inside the 0.1% noise threshold: realized flat, an
	// "up" prediction scores incorrect.
	signals.prices["AAPL"] = barsAround("AAPL", cycle, target, 100.0, 100.05)

	require.NoError(t, eval.Evaluate(ctx, pred))

	list, err := results.ListResults(ctx, "AAPL", "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.DirectionFlat, list[0].RealizedDir)
	assert.False(t, list[0].Correct)
	assert.InDelta(t, 0.0005, list[0].RealizedReturn, 1e-9)
}

func TestEvaluateCorrectDirection(t *testing.T) {
	eval, predictions, results, signals := newEvalFixture(t)
	ctx := context.Background()

	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	pred := models.Prediction{
		ID: "p2", Symbol: "MSFT", CycleDate: cycle, TargetDate: target,
		HorizonDays: 5, Strategy: "news_impact", Direction: models.DirectionDown,
	}
	require.NoError(t, predictions.AppendPrediction(ctx, pred))
	signals.prices["MSFT"] = barsAround("MSFT", cycle, target, 400.0, 388.0)

	require.NoError(t, eval.Evaluate(ctx, pred))

	list, err := results.ListResults(ctx, "MSFT", "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.DirectionDown, list[0].RealizedDir)
	assert.True(t, list[0].Correct)

	// Both the instrument and the global bucket are rebuilt.
	inst, ok, err := results.GetPerformance(ctx, "news_impact", "MSFT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, inst.HitRate)
	assert.Equal(t, 1, inst.SampleCount)

	global, ok, err := results.GetPerformance(ctx, "news_impact", models.GlobalScope)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, global.HitRate)
}

func TestEvaluateIdempotent(t *testing.T) {
	eval, predictions, results, signals := newEvalFixture(t)
	ctx := context.Background()

	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	pred := models.Prediction{
		ID: "p3", Symbol: "AAPL", CycleDate: cycle, TargetDate: target,
		HorizonDays: 5, Strategy: "momentum", Direction: models.DirectionUp,
	}
	require.NoError(t, predictions.AppendPrediction(ctx, pred))
	signals.prices["AAPL"] = barsAround("AAPL", cycle, target, 100.0, 105.0)

	require.NoError(t, eval.Evaluate(ctx, pred))
	require.NoError(t, eval.Evaluate(ctx, pred))
	require.NoError(t, eval.Evaluate(ctx, pred))

	list, err := results.ListResults(ctx, "AAPL", "", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	perf, ok, err := results.GetPerformance(ctx, "momentum", "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, perf.SampleCount)
}

func TestEvaluateUnresolvedStaysPending(t *testing.T) {
	eval, predictions, results, signals := newEvalFixture(t)
	ctx := context.Background()

	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	target := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	pred := models.Prediction{
		ID: "p4", Symbol: "NVDA", CycleDate: cycle, TargetDate: target,
		HorizonDays: 5, Strategy: "contrarian", Direction: models.DirectionUp,
	}
	require.NoError(t, predictions.AppendPrediction(ctx, pred))
	// Base exists, the realized side does not.
	signals.prices["NVDA"] = []models.PriceObservation{{Symbol: "NVDA", Date: cycle, Close: 900.0}}

	err := eval.Evaluate(ctx, pred)
	require.ErrorIs(t, err, models.ErrUnresolved)

	list, err := results.ListResults(ctx, "NVDA", "", 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Still pending for the next pass.
	pending, err := predictions.PendingPredictions(ctx, target.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRunEvaluatesAllDuePredictions(t *testing.T) {
	eval, predictions, results, signals := newEvalFixture(t)
	ctx := context.Background()

	cycle := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	for i, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		target := cycle.AddDate(0, 0, 7+i)
		require.NoError(t, predictions.AppendPrediction(ctx, models.Prediction{
			ID: sym + "-pred", Symbol: sym, CycleDate: cycle, TargetDate: target,
			HorizonDays: 5, Strategy: "momentum", Direction: models.DirectionUp,
		}))
		signals.prices[sym] = barsAround(sym, cycle, target, 100.0, 101.0)
	}

	require.NoError(t, eval.Run(ctx, cycle.AddDate(0, 0, 30)))

	sum, err := results.Accuracy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Evaluated)
	assert.Equal(t, 3, sum.Correct)
}

func TestRollingWindowCapsPerformance(t *testing.T) {
	eval, predictions, results, signals := newEvalFixture(t)
	ctx := context.Background()
	window := testEngineConfig(t).Evaluation.RollingWindow

	cycle := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	// First half misses, second half hits; more predictions than the window.
	total := window + 6
	for i := 0; i < total; i++ {
		target := cycle.AddDate(0, 0, 7+i)
		dir := models.DirectionDown
		if i >= total/2 {
			dir = models.DirectionUp
		}
		pred := models.Prediction{
			ID: "roll-" + time.Now().Format("150405") + "-" + string(rune('a'+i)),
			Symbol: "AAPL", CycleDate: cycle.AddDate(0, 0, i), TargetDate: target,
			HorizonDays: 5, Strategy: "momentum", Direction: dir,
		}
		require.NoError(t, predictions.AppendPrediction(ctx, pred))
		signals.prices["AAPL"] = barsAround("AAPL", cycle.AddDate(0, 0, i), target, 100.0, 103.0)
		require.NoError(t, eval.Evaluate(ctx, pred))
	}

	perf, ok, err := results.GetPerformance(ctx, "momentum", "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, window, perf.SampleCount)
	// The trailing window holds only correct "up" results plus however many
	// "down" misses still fit.
	assert.Greater(t, perf.HitRate, 0.5)
}
