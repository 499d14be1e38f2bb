package repository

import (
	"context"
	"time"

	"SignalEngine/internal/domain/models"
)

// SignalStore is the read-only view over persisted price and sentiment
// history. Everything above it consumes time-windowed series.
type SignalStore interface {
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceObservation, error)
	GetSentiment(ctx context.Context, symbol string, from, to time.Time) ([]models.SentimentRecord, error)
	// GetSignalWindow bundles both series for one instrument.
	GetSignalWindow(ctx context.Context, symbol string, from, to time.Time) (models.SignalWindow, error)
	// ClosePriceOnOrAfter returns the first close at or after date.
	ClosePriceOnOrAfter(ctx context.Context, symbol string, date time.Time) (float64, error)
	// ClosePriceOnOrBefore returns the last close at or before date.
	ClosePriceOnOrBefore(ctx context.Context, symbol string, date time.Time) (float64, error)
}

// SignalWriter persists refreshed price bars and scored documents.
// Writes are append-only; re-writing an existing row is a no-op.
type SignalWriter interface {
	StorePrices(ctx context.Context, bars []models.PriceObservation) error
	StoreSentiment(ctx context.Context, recs []models.SentimentRecord) error
}

// CorrelationStore appends correlation snapshots and reads the latest one.
type CorrelationStore interface {
	AppendSnapshot(ctx context.Context, rows []models.Correlation) error
	LatestSnapshot(ctx context.Context) ([]models.Correlation, error)
	ListCorrelations(ctx context.Context, symbol string, significantOnly bool, limit int) ([]models.Correlation, error)
}

// PredictionStore appends published predictions and serves reads for
// evaluation and the dashboard.
type PredictionStore interface {
	// AppendPrediction writes one prediction. A second prediction for the
	// same (symbol, cycle date) returns models.ErrDuplicate.
	AppendPrediction(ctx context.Context, p models.Prediction) error
	// PendingPredictions returns predictions whose target date is at or
	// before asOf and which have no Result yet.
	PendingPredictions(ctx context.Context, asOf time.Time) ([]models.Prediction, error)
	ListPredictions(ctx context.Context, symbol string, targetDate *time.Time, limit int) ([]models.Prediction, error)
}

// ResultStore appends evaluation results. The Result log is the source of
// truth the performance buckets are rebuilt from.
type ResultStore interface {
	// AppendResult writes one result. A second result for the same
	// prediction returns models.ErrDuplicate.
	AppendResult(ctx context.Context, r models.Result) error
	HasResult(ctx context.Context, predictionID string) (bool, error)
	// RecentResults returns the trailing limit results for a
	// (strategy, scope) bucket, newest first. Scope models.GlobalScope
	// matches every instrument.
	RecentResults(ctx context.Context, strategy, scope string, limit int) ([]models.Result, error)
	ListResults(ctx context.Context, symbol, strategy string, limit int) ([]models.Result, error)
	Accuracy(ctx context.Context) (models.AccuracySummary, error)
}

// PerformanceStore reads and upserts rolling hit-rate buckets.
type PerformanceStore interface {
	GetPerformance(ctx context.Context, strategy, scope string) (models.StrategyPerformance, bool, error)
	UpsertPerformance(ctx context.Context, p models.StrategyPerformance) error
	ListPerformance(ctx context.Context, strategy, scope string) ([]models.StrategyPerformance, error)
}

// InstrumentStore manages the tracked instrument set. Instruments are never
// deleted, only deactivated.
type InstrumentStore interface {
	ActiveInstruments(ctx context.Context) ([]models.Instrument, error)
	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	AddInstrument(ctx context.Context, inst models.Instrument) error
	SetActive(ctx context.Context, symbol string, active bool) error
}

// MarketData is the external daily-bars provider boundary. A transient
// failure is reported as models.ErrTransient; the caller skips the
// instrument for the cycle.
type MarketData interface {
	GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceObservation, error)
}

// Publisher emits prediction events to downstream consumers.
type Publisher interface {
	PublishPrediction(ctx context.Context, ev models.PredictionEvent) error
	Close() error
}

// Metrics records operational metrics for the engine.
type Metrics interface {
	RecordPrediction(strategy, symbol string)
	RecordAbstention(strategy, symbol string)
	RecordEvaluation(strategy string, correct bool)
	RecordUnresolved(symbol string)
	RecordError(kind string)
	RecordCycleDuration(cycle string, seconds float64)
	RecordHitRate(strategy, scope string, rate float64)
}
