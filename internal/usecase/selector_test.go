package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalEngine/internal/domain/models"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
)

func testEngineConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	var cfg config.EngineConfig
	require.NoError(t, defaults.Set(&cfg))
	return cfg
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

var testInstrument = models.Instrument{Symbol: "AAPL", Name: "Apple Inc.", Active: true}

func TestSelectorWeightedScoreWins(t *testing.T) {
	perf := newMemPerformanceStore()
	ctx := context.Background()

	// momentum: strong instrument history; news_impact: weaker.
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "momentum", Scope: "AAPL", HitRate: 0.9, SampleCount: 10,
	}))
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "news_impact", Scope: "AAPL", HitRate: 0.6, SampleCount: 10,
	}))

	sel := NewSelector(perf, testEngineConfig(t), testLogger(t))
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	pred, err := sel.Select(ctx, testInstrument, cycle, []models.Candidate{
		{Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.8},
		{Strategy: "news_impact", Direction: models.DirectionDown, Confidence: 0.7},
	})
	require.NoError(t, err)
	require.NotNil(t, pred)

	// 0.8*0.9 = 0.72 beats 0.7*0.6 = 0.42 even though raw confidences are close.
	assert.Equal(t, "momentum", pred.Strategy)
	assert.Equal(t, models.DirectionUp, pred.Direction)
	assert.Equal(t, 0.8, pred.Confidence)
	assert.NotEmpty(t, pred.ID)
}

func TestSelectorColdStartNeutralWeight(t *testing.T) {
	perf := newMemPerformanceStore()
	sel := NewSelector(perf, testEngineConfig(t), testLogger(t))
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// No history at all: both get the neutral 0.5 weight, so the higher
	// confidence wins.
	pred, err := sel.Select(context.Background(), testInstrument, cycle, []models.Candidate{
		{Strategy: "contrarian", Direction: models.DirectionUp, Confidence: 0.9},
		{Strategy: "momentum", Direction: models.DirectionDown, Confidence: 0.6},
	})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "contrarian", pred.Strategy)
}

func TestSelectorGlobalFallback(t *testing.T) {
	perf := newMemPerformanceStore()
	ctx := context.Background()

	// Instrument bucket exists but is below the minimum sample count, so the
	// global bucket is used instead.
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "momentum", Scope: "AAPL", HitRate: 1.0, SampleCount: 2,
	}))
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "momentum", Scope: models.GlobalScope, HitRate: 0.25, SampleCount: 40,
	}))
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "news_impact", Scope: models.GlobalScope, HitRate: 0.8, SampleCount: 40,
	}))

	sel := NewSelector(perf, testEngineConfig(t), testLogger(t))
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	pred, err := sel.Select(ctx, testInstrument, cycle, []models.Candidate{
		{Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.9},
		{Strategy: "news_impact", Direction: models.DirectionDown, Confidence: 0.5},
	})
	require.NoError(t, err)
	require.NotNil(t, pred)

	// momentum: 0.9*0.25 = 0.225; news_impact: 0.5*0.8 = 0.40.
	assert.Equal(t, "news_impact", pred.Strategy)
}

func TestSelectorTieBreakPriority(t *testing.T) {
	perf := newMemPerformanceStore()
	sel := NewSelector(perf, testEngineConfig(t), testLogger(t))
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Equal score, equal (zero) samples: fixed priority prefers correlation.
	pred, err := sel.Select(context.Background(), testInstrument, cycle, []models.Candidate{
		{Strategy: "contrarian", Direction: models.DirectionDown, Confidence: 0.7},
		{Strategy: "correlation", Direction: models.DirectionUp, Confidence: 0.7},
	})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "correlation", pred.Strategy)
}

func TestSelectorTieBreakSampleCount(t *testing.T) {
	perf := newMemPerformanceStore()
	ctx := context.Background()

	// Same hit rate, different evidence: more samples wins before priority.
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "contrarian", Scope: "AAPL", HitRate: 0.5, SampleCount: 12,
	}))
	require.NoError(t, perf.UpsertPerformance(ctx, models.StrategyPerformance{
		Strategy: "correlation", Scope: "AAPL", HitRate: 0.5, SampleCount: 6,
	}))

	sel := NewSelector(perf, testEngineConfig(t), testLogger(t))
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	pred, err := sel.Select(ctx, testInstrument, cycle, []models.Candidate{
		{Strategy: "contrarian", Direction: models.DirectionDown, Confidence: 0.7},
		{Strategy: "correlation", Direction: models.DirectionUp, Confidence: 0.7},
	})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, "contrarian", pred.Strategy)
}

func TestSelectorAllAbstain(t *testing.T) {
	sel := NewSelector(newMemPerformanceStore(), testEngineConfig(t), testLogger(t))
	pred, err := sel.Select(context.Background(), testInstrument, time.Now(), nil)
	require.NoError(t, err)
	assert.Nil(t, pred)
}

func TestSelectorDeterministic(t *testing.T) {
	perf := newMemPerformanceStore()
	sel := NewSelector(perf, testEngineConfig(t), testLogger(t))
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	candidates := []models.Candidate{
		{Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.7},
		{Strategy: "news_impact", Direction: models.DirectionDown, Confidence: 0.7},
		{Strategy: "contrarian", Direction: models.DirectionUp, Confidence: 0.7},
	}

	first, err := sel.Select(context.Background(), testInstrument, cycle, candidates)
	require.NoError(t, err)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		again, err := sel.Select(context.Background(), testInstrument, cycle, candidates)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, first.Strategy, again.Strategy)
		assert.Equal(t, first.Direction, again.Direction)
	}
}

func TestSelectorTargetDateSkipsWeekends(t *testing.T) {
	sel := NewSelector(newMemPerformanceStore(), testEngineConfig(t), testLogger(t))
	// Monday cycle with the default 5-day horizon lands on the next Monday.
	cycle := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	pred, err := sel.Select(context.Background(), testInstrument, cycle, []models.Candidate{
		{Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.5},
	})
	require.NoError(t, err)
	require.NotNil(t, pred)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), pred.TargetDate)
	assert.Equal(t, 5, pred.HorizonDays)
}
