package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/correlation"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/util"
	"SignalEngine/pkg/workerpool"
)

// PredictionCycle runs one scheduled prediction pass over the active
// instrument set: correlation snapshot first (the single ordering barrier),
// then strategies and selection fanned out across instruments.
type PredictionCycle struct {
	instruments domrepo.InstrumentStore
	signals     domrepo.SignalStore
	corrEngine  *correlation.Engine
	corrStore   domrepo.CorrelationStore
	strategies  []domsvc.Strategy
	selector    *Selector
	predictions domrepo.PredictionStore
	publishers  []domrepo.Publisher
	metrics     domrepo.Metrics
	cfg         config.EngineConfig
	l           *applogger.Logger
}

func NewPredictionCycle(
	instruments domrepo.InstrumentStore,
	signals domrepo.SignalStore,
	corrEngine *correlation.Engine,
	corrStore domrepo.CorrelationStore,
	strategies []domsvc.Strategy,
	selector *Selector,
	predictions domrepo.PredictionStore,
	publishers []domrepo.Publisher,
	metrics domrepo.Metrics,
	cfg config.EngineConfig,
	l *applogger.Logger,
) *PredictionCycle {
	return &PredictionCycle{
		instruments: instruments,
		signals:     signals,
		corrEngine:  corrEngine,
		corrStore:   corrStore,
		strategies:  strategies,
		selector:    selector,
		predictions: predictions,
		publishers:  publishers,
		metrics:     metrics,
		cfg:         cfg,
		l:           l,
	}
}

// Run executes one prediction cycle dated cycleDate. An empty instrument
// set is a configuration error and halts the cycle; everything below that
// recovers locally (strategies abstain, instruments are skipped).
func (c *PredictionCycle) Run(ctx context.Context, cycleDate time.Time) error {
	start := time.Now()
	cycleDate = util.TruncateDay(cycleDate)

	active, err := c.instruments.ActiveInstruments(ctx)
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	if len(active) == 0 {
		return models.ErrNoInstruments
	}

	// Ordering barrier: no strategy runs until the snapshot is complete.
	rows, err := c.corrEngine.Compute(ctx, active, cycleDate)
	if err != nil {
		return fmt.Errorf("correlation snapshot: %w", err)
	}
	if len(rows) > 0 {
		if err := c.corrStore.AppendSnapshot(ctx, rows); err != nil {
			return fmt.Errorf("append correlation snapshot: %w", err)
		}
	}
	snapshot := models.NewCorrelationSnapshot(cycleDate, rows)

	c.l.Info("prediction cycle started",
		applogger.String("cycle_date", cycleDate.Format(time.DateOnly)),
		applogger.Int("instruments", len(active)),
		applogger.Int("correlations", len(rows)),
	)

	var mu sync.Mutex
	published := 0
	workerpool.ForEach(ctx, c.cfg.Workers, active, func(ctx context.Context, inst models.Instrument) {
		ok, err := c.predictInstrument(ctx, inst, cycleDate, snapshot)
		if err != nil {
			c.metrics.RecordError("predict_instrument")
			c.l.Error("instrument skipped this cycle",
				applogger.String("symbol", inst.Symbol),
				applogger.Error(err),
			)
			return
		}
		if ok {
			mu.Lock()
			published++
			mu.Unlock()
		}
	})

	c.metrics.RecordCycleDuration("prediction", time.Since(start).Seconds())
	c.l.Info("prediction cycle complete",
		applogger.Int("published", published),
		applogger.Int("instruments", len(active)),
		applogger.Duration("duration", time.Since(start)),
	)
	return nil
}

// Correlate recomputes and stores the correlation snapshot without running
// strategies, for out-of-band refreshes.
func (c *PredictionCycle) Correlate(ctx context.Context, asOf time.Time) error {
	asOf = util.TruncateDay(asOf)
	active, err := c.instruments.ActiveInstruments(ctx)
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	if len(active) == 0 {
		return models.ErrNoInstruments
	}
	rows, err := c.corrEngine.Compute(ctx, active, asOf)
	if err != nil {
		return fmt.Errorf("correlation snapshot: %w", err)
	}
	if len(rows) == 0 {
		c.l.Info("no correlation pairs with sufficient overlap")
		return nil
	}
	if err := c.corrStore.AppendSnapshot(ctx, rows); err != nil {
		return fmt.Errorf("append correlation snapshot: %w", err)
	}
	c.l.Info("correlation snapshot stored", applogger.Int("pairs", len(rows)))
	return nil
}

// predictInstrument runs every strategy concurrently for one instrument,
// selects a winner, and publishes it. Returns true when a prediction was
// published.
func (c *PredictionCycle) predictInstrument(ctx context.Context, inst models.Instrument, cycleDate time.Time, snapshot *models.CorrelationSnapshot) (bool, error) {
	from := cycleDate.AddDate(0, 0, -c.cfg.SignalWindowDays)
	window, err := c.signals.GetSignalWindow(ctx, inst.Symbol, from, cycleDate)
	if err != nil {
		return false, fmt.Errorf("signal window: %w", err)
	}

	// Strategies are read-only and independent; run them concurrently.
	candidates := make([]models.Candidate, len(c.strategies))
	present := make([]bool, len(c.strategies))
	var wg sync.WaitGroup
	for i, strat := range c.strategies {
		wg.Add(1)
		go func(i int, strat domsvc.Strategy) {
			defer wg.Done()
			cand, err := strat.Evaluate(ctx, inst, window, snapshot)
			if err != nil {
				c.metrics.RecordError("strategy_" + strat.Name())
				c.l.Warn("strategy failed, treated as abstention",
					applogger.String("strategy", strat.Name()),
					applogger.String("symbol", inst.Symbol),
					applogger.Error(err),
				)
				return
			}
			if cand == nil {
				c.metrics.RecordAbstention(strat.Name(), inst.Symbol)
				return
			}
			candidates[i] = *cand
			present[i] = true
		}(i, strat)
	}
	wg.Wait()

	// Preserve strategy registration order for determinism.
	final := make([]models.Candidate, 0, len(candidates))
	for i := range candidates {
		if present[i] {
			final = append(final, candidates[i])
		}
	}

	pred, err := c.selector.Select(ctx, inst, cycleDate, final)
	if err != nil {
		return false, fmt.Errorf("select: %w", err)
	}
	if pred == nil {
		return false, nil
	}

	if err := c.predictions.AppendPrediction(ctx, *pred); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			// Invariant guard: a prediction for this instrument and cycle
			// already exists. Log and move on without overwriting.
			c.l.Warn("duplicate prediction rejected",
				applogger.String("symbol", inst.Symbol),
				applogger.String("cycle_date", cycleDate.Format(time.DateOnly)),
			)
			return false, nil
		}
		return false, fmt.Errorf("append prediction: %w", err)
	}

	c.metrics.RecordPrediction(pred.Strategy, pred.Symbol)
	ev := models.PredictionEvent{Prediction: *pred, Cycle: cycleDate.Format(time.DateOnly)}
	for _, pub := range c.publishers {
		if err := pub.PublishPrediction(ctx, ev); err != nil {
			c.metrics.RecordError("publish_prediction")
			c.l.Warn("prediction event publish failed",
				applogger.String("symbol", pred.Symbol),
				applogger.Error(err),
			)
		}
	}
	return true, nil
}
