package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/workerpool"
)

// EvaluationCycle reconciles published predictions against realized prices
// once their horizon has elapsed, appends Results, and rebuilds the rolling
// StrategyPerformance buckets the selector reads. This is the feedback loop
// closing the system.
type EvaluationCycle struct {
	predictions domrepo.PredictionStore
	signals     domrepo.SignalStore
	results     domrepo.ResultStore
	perf        domrepo.PerformanceStore
	metrics     domrepo.Metrics
	cfg         config.EngineConfig
	l           *applogger.Logger

	// Bucket updates are serialized per (strategy, scope) to avoid lost
	// updates when evaluations for the same bucket complete concurrently.
	mu      sync.Mutex
	buckets map[string]*sync.Mutex
}

func NewEvaluationCycle(
	predictions domrepo.PredictionStore,
	signals domrepo.SignalStore,
	results domrepo.ResultStore,
	perf domrepo.PerformanceStore,
	metrics domrepo.Metrics,
	cfg config.EngineConfig,
	l *applogger.Logger,
) *EvaluationCycle {
	return &EvaluationCycle{
		predictions: predictions,
		signals:     signals,
		results:     results,
		perf:        perf,
		metrics:     metrics,
		cfg:         cfg,
		l:           l,
		buckets:     make(map[string]*sync.Mutex),
	}
}

// Run evaluates every prediction whose horizon has elapsed and which has no
// Result yet. Unresolved predictions (missing realized price) stay pending
// and are retried on the next pass; they are never counted as misses.
func (e *EvaluationCycle) Run(ctx context.Context, asOf time.Time) error {
	start := time.Now()

	pending, err := e.predictions.PendingPredictions(ctx, asOf)
	if err != nil {
		return fmt.Errorf("load pending predictions: %w", err)
	}
	if len(pending) == 0 {
		e.l.Info("no predictions due for evaluation")
		return nil
	}

	e.l.Info("evaluation cycle started", applogger.Int("pending", len(pending)))

	var mu sync.Mutex
	evaluated, unresolved := 0, 0
	workerpool.ForEach(ctx, e.cfg.Workers, pending, func(ctx context.Context, p models.Prediction) {
		err := e.Evaluate(ctx, p)
		switch {
		case errors.Is(err, models.ErrUnresolved):
			mu.Lock()
			unresolved++
			mu.Unlock()
		case err != nil:
			e.metrics.RecordError("evaluate")
			e.l.Error("evaluation failed",
				applogger.String("prediction_id", p.ID),
				applogger.String("symbol", p.Symbol),
				applogger.Error(err),
			)
		default:
			mu.Lock()
			evaluated++
			mu.Unlock()
		}
	})

	e.metrics.RecordCycleDuration("evaluation", time.Since(start).Seconds())
	e.l.Info("evaluation cycle complete",
		applogger.Int("evaluated", evaluated),
		applogger.Int("unresolved", unresolved),
		applogger.Duration("duration", time.Since(start)),
	)
	return nil
}

// Evaluate reconciles a single prediction. The operation is idempotent:
// evaluating the same prediction twice produces exactly one Result and one
// performance update.
func (e *EvaluationCycle) Evaluate(ctx context.Context, p models.Prediction) error {
	done, err := e.results.HasResult(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("check existing result: %w", err)
	}
	if done {
		return nil
	}

	base, err := e.signals.ClosePriceOnOrBefore(ctx, p.Symbol, p.CycleDate)
	if err != nil {
		return e.unresolved(p, err)
	}
	final, err := e.signals.ClosePriceOnOrAfter(ctx, p.Symbol, p.TargetDate)
	if err != nil {
		return e.unresolved(p, err)
	}
	if base <= 0 {
		return e.unresolved(p, fmt.Errorf("non-positive base price %f", base))
	}

	ret := final/base - 1
	realized := realizedDirection(ret, e.cfg.Evaluation.NoiseThreshold)
	correct := realized == p.Direction

	result := models.Result{
		PredictionID:   p.ID,
		Symbol:         p.Symbol,
		Strategy:       p.Strategy,
		EvaluatedAt:    time.Now().UTC(),
		RealizedDir:    realized,
		RealizedReturn: ret,
		Correct:        correct,
	}
	if err := e.results.AppendResult(ctx, result); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			// Another pass got here first; the aggregate is already updated.
			return nil
		}
		return fmt.Errorf("append result: %w", err)
	}

	e.metrics.RecordEvaluation(p.Strategy, correct)
	e.l.Info("prediction evaluated",
		applogger.String("symbol", p.Symbol),
		applogger.String("strategy", p.Strategy),
		applogger.String("predicted", string(p.Direction)),
		applogger.String("realized", string(realized)),
		applogger.Float64("return", ret),
		applogger.Bool("correct", correct),
	)

	for _, scope := range []string{p.Symbol, models.GlobalScope} {
		if err := e.rebuildBucket(ctx, p.Strategy, scope); err != nil {
			return fmt.Errorf("rebuild bucket %s/%s: %w", p.Strategy, scope, err)
		}
	}
	return nil
}

func (e *EvaluationCycle) unresolved(p models.Prediction, cause error) error {
	e.metrics.RecordUnresolved(p.Symbol)
	e.l.Warn("prediction unresolved, will retry next pass",
		applogger.String("prediction_id", p.ID),
		applogger.String("symbol", p.Symbol),
		applogger.Error(cause),
	)
	return fmt.Errorf("%w: %s", models.ErrUnresolved, cause)
}

// rebuildBucket recomputes the rolling hit rate for one bucket from the
// trailing window of the Result log. Rebuilding from the log instead of
// nudging a running average keeps the aggregate auditable and immune to
// partial-update drift.
func (e *EvaluationCycle) rebuildBucket(ctx context.Context, strategy, scope string) error {
	lock := e.bucketLock(strategy, scope)
	lock.Lock()
	defer lock.Unlock()

	window, err := e.results.RecentResults(ctx, strategy, scope, e.cfg.Evaluation.RollingWindow)
	if err != nil {
		return err
	}
	if len(window) == 0 {
		return nil
	}

	correct := 0
	for _, r := range window {
		if r.Correct {
			correct++
		}
	}
	perf := models.StrategyPerformance{
		Strategy:    strategy,
		Scope:       scope,
		HitRate:     float64(correct) / float64(len(window)),
		SampleCount: len(window),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := e.perf.UpsertPerformance(ctx, perf); err != nil {
		return err
	}
	e.metrics.RecordHitRate(strategy, scope, perf.HitRate)
	return nil
}

func (e *EvaluationCycle) bucketLock(strategy, scope string) *sync.Mutex {
	key := strategy + "|" + scope
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.buckets[key]
	if !ok {
		lock = &sync.Mutex{}
		e.buckets[key] = lock
	}
	return lock
}

// realizedDirection maps a realized return to a direction, treating moves
// below the noise threshold as flat.
func realizedDirection(ret, noise float64) models.Direction {
	if math.Abs(ret) < noise {
		return models.DirectionFlat
	}
	if ret > 0 {
		return models.DirectionUp
	}
	return models.DirectionDown
}
