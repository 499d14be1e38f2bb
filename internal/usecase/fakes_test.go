package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
)

// In-memory store fakes shared by the usecase tests.

type memPerformanceStore struct {
	mu      sync.Mutex
	buckets map[string]models.StrategyPerformance
}

func newMemPerformanceStore() *memPerformanceStore {
	return &memPerformanceStore{buckets: make(map[string]models.StrategyPerformance)}
}

func perfKey(strategy, scope string) string { return strategy + "|" + scope }

func (m *memPerformanceStore) GetPerformance(_ context.Context, strategy, scope string) (models.StrategyPerformance, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.buckets[perfKey(strategy, scope)]
	return p, ok, nil
}

func (m *memPerformanceStore) UpsertPerformance(_ context.Context, p models.StrategyPerformance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[perfKey(p.Strategy, p.Scope)] = p
	return nil
}

func (m *memPerformanceStore) ListPerformance(_ context.Context, strategy, scope string) ([]models.StrategyPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StrategyPerformance, 0, len(m.buckets))
	for _, p := range m.buckets {
		if (strategy == "" || p.Strategy == strategy) && (scope == "" || p.Scope == scope) {
			out = append(out, p)
		}
	}
	return out, nil
}

type memResultStore struct {
	memPerformanceStore
	mu      sync.Mutex
	results []models.Result
}

func newMemResultStore() *memResultStore {
	return &memResultStore{memPerformanceStore: *newMemPerformanceStore()}
}

func (m *memResultStore) AppendResult(_ context.Context, r models.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.results {
		if have.PredictionID == r.PredictionID {
			return fmt.Errorf("%w: result for prediction %s", models.ErrDuplicate, r.PredictionID)
		}
	}
	m.results = append(m.results, r)
	return nil
}

func (m *memResultStore) HasResult(_ context.Context, predictionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results {
		if r.PredictionID == predictionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memResultStore) RecentResults(_ context.Context, strategy, scope string, limit int) ([]models.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Result, 0, limit)
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.results[i]
		if r.Strategy != strategy {
			continue
		}
		if scope != models.GlobalScope && r.Symbol != scope {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memResultStore) ListResults(_ context.Context, symbol, strategy string, limit int) ([]models.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Result, 0, limit)
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.results[i]
		if (symbol == "" || r.Symbol == symbol) && (strategy == "" || r.Strategy == strategy) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memResultStore) Accuracy(_ context.Context) (models.AccuracySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := models.AccuracySummary{Evaluated: len(m.results)}
	for _, r := range m.results {
		if r.Correct {
			sum.Correct++
		}
	}
	if sum.Evaluated > 0 {
		sum.HitRate = float64(sum.Correct) / float64(sum.Evaluated)
	}
	return sum, nil
}

type memPredictionStore struct {
	mu          sync.Mutex
	predictions []models.Prediction
	results     *memResultStore
}

func newMemPredictionStore(results *memResultStore) *memPredictionStore {
	return &memPredictionStore{results: results}
}

func (m *memPredictionStore) AppendPrediction(_ context.Context, p models.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.predictions {
		if have.Symbol == p.Symbol && have.CycleDate.Equal(p.CycleDate) {
			return fmt.Errorf("%w: prediction for %s", models.ErrDuplicate, p.Symbol)
		}
	}
	m.predictions = append(m.predictions, p)
	return nil
}

func (m *memPredictionStore) PendingPredictions(ctx context.Context, asOf time.Time) ([]models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Prediction, 0, len(m.predictions))
	for _, p := range m.predictions {
		if p.TargetDate.After(asOf) {
			continue
		}
		done, _ := m.results.HasResult(ctx, p.ID)
		if !done {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPredictionStore) ListPredictions(_ context.Context, symbol string, targetDate *time.Time, limit int) ([]models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Prediction, 0, limit)
	for _, p := range m.predictions {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		if targetDate != nil && !p.TargetDate.Equal(*targetDate) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// memSignalStore serves canned price bars per symbol.
type memSignalStore struct {
	prices    map[string][]models.PriceObservation
	sentiment map[string][]models.SentimentRecord
}

func newMemSignalStore() *memSignalStore {
	return &memSignalStore{
		prices:    make(map[string][]models.PriceObservation),
		sentiment: make(map[string][]models.SentimentRecord),
	}
}

func (m *memSignalStore) GetPriceHistory(_ context.Context, symbol string, from, to time.Time) ([]models.PriceObservation, error) {
	out := make([]models.PriceObservation, 0, 8)
	for _, b := range m.prices[symbol] {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memSignalStore) GetSentiment(_ context.Context, symbol string, from, to time.Time) ([]models.SentimentRecord, error) {
	out := make([]models.SentimentRecord, 0, 8)
	for _, r := range m.sentiment[symbol] {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memSignalStore) GetSignalWindow(ctx context.Context, symbol string, from, to time.Time) (models.SignalWindow, error) {
	prices, _ := m.GetPriceHistory(ctx, symbol, from, to)
	sentiment, _ := m.GetSentiment(ctx, symbol, from, to)
	return models.SignalWindow{Symbol: symbol, From: from, To: to, Prices: prices, Sentiment: sentiment}, nil
}

func (m *memSignalStore) ClosePriceOnOrAfter(_ context.Context, symbol string, date time.Time) (float64, error) {
	for _, b := range m.prices[symbol] {
		if !b.Date.Before(date) {
			return b.Close, nil
		}
	}
	return 0, fmt.Errorf("%w: no close for %s", models.ErrUnresolved, symbol)
}

func (m *memSignalStore) ClosePriceOnOrBefore(_ context.Context, symbol string, date time.Time) (float64, error) {
	bars := m.prices[symbol]
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Date.After(date) {
			return bars[i].Close, nil
		}
	}
	return 0, fmt.Errorf("%w: no close for %s", models.ErrUnresolved, symbol)
}

// nopMetrics satisfies the Metrics contract for tests.
type nopMetrics struct{}

func (nopMetrics) RecordPrediction(string, string)       {}
func (nopMetrics) RecordAbstention(string, string)       {}
func (nopMetrics) RecordEvaluation(string, bool)         {}
func (nopMetrics) RecordUnresolved(string)               {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordCycleDuration(string, float64)   {}
func (nopMetrics) RecordHitRate(string, string, float64) {}
