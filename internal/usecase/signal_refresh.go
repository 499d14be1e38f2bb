package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/util"
	"SignalEngine/pkg/workerpool"
)

// SignalRefresh pulls fresh daily bars from the market data provider for
// every active instrument and persists them. Sentiment arrives separately
// through the Kafka consumer; this pass only covers prices.
type SignalRefresh struct {
	instruments domrepo.InstrumentStore
	provider    domrepo.MarketData
	writer      domrepo.SignalWriter
	metrics     domrepo.Metrics
	cfg         config.EngineConfig
	l           *applogger.Logger
}

func NewSignalRefresh(
	instruments domrepo.InstrumentStore,
	provider domrepo.MarketData,
	writer domrepo.SignalWriter,
	metrics domrepo.Metrics,
	cfg config.EngineConfig,
	l *applogger.Logger,
) *SignalRefresh {
	return &SignalRefresh{
		instruments: instruments,
		provider:    provider,
		writer:      writer,
		metrics:     metrics,
		cfg:         cfg,
		l:           l,
	}
}

// Run refreshes the trailing signal window for every active instrument.
// A transient provider failure skips the instrument for this pass; price
// writes are append-only so re-fetching an already stored day is harmless.
func (s *SignalRefresh) Run(ctx context.Context, asOf time.Time) error {
	start := time.Now()
	asOf = util.TruncateDay(asOf)
	from := asOf.AddDate(0, 0, -s.cfg.SignalWindowDays)

	active, err := s.instruments.ActiveInstruments(ctx)
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	if len(active) == 0 {
		return models.ErrNoInstruments
	}

	s.l.Info("signal refresh started",
		applogger.String("from", from.Format(time.DateOnly)),
		applogger.String("to", asOf.Format(time.DateOnly)),
		applogger.Int("instruments", len(active)),
	)

	var mu sync.Mutex
	refreshed, skipped := 0, 0
	workerpool.ForEach(ctx, s.cfg.Workers, active, func(ctx context.Context, inst models.Instrument) {
		n, err := s.refreshInstrument(ctx, inst, from, asOf)
		if err != nil {
			mu.Lock()
			skipped++
			mu.Unlock()
			if errors.Is(err, models.ErrTransient) {
				s.l.Warn("provider unavailable, instrument skipped",
					applogger.String("symbol", inst.Symbol),
					applogger.Error(err),
				)
				return
			}
			s.metrics.RecordError("refresh_instrument")
			s.l.Error("instrument refresh failed",
				applogger.String("symbol", inst.Symbol),
				applogger.Error(err),
			)
			return
		}
		mu.Lock()
		refreshed += n
		mu.Unlock()
	})

	s.metrics.RecordCycleDuration("refresh", time.Since(start).Seconds())
	s.l.Info("signal refresh complete",
		applogger.Int("bars", refreshed),
		applogger.Int("skipped", skipped),
		applogger.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *SignalRefresh) refreshInstrument(ctx context.Context, inst models.Instrument, from, to time.Time) (int, error) {
	bars, err := s.provider.GetPriceHistory(ctx, inst.Symbol, from, to)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}
	if err := s.writer.StorePrices(ctx, bars); err != nil {
		return 0, fmt.Errorf("store bars: %w", err)
	}
	return len(bars), nil
}

// SyncInstruments reconciles the configured instrument list into the store.
// New symbols are inserted, active flags are applied; nothing is deleted.
func SyncInstruments(ctx context.Context, store domrepo.InstrumentStore, configured []config.InstrumentConfig, l *applogger.Logger) error {
	existing, err := store.ListInstruments(ctx)
	if err != nil {
		return fmt.Errorf("list instruments: %w", err)
	}
	known := make(map[string]models.Instrument, len(existing))
	for _, inst := range existing {
		known[inst.Symbol] = inst
	}

	for _, ic := range configured {
		active := ic.Active == nil || *ic.Active
		cur, ok := known[ic.Symbol]
		if !ok {
			inst := models.Instrument{
				Symbol:    ic.Symbol,
				Name:      ic.Name,
				Sector:    ic.Sector,
				Active:    active,
				CreatedAt: time.Now().UTC(),
			}
			if err := store.AddInstrument(ctx, inst); err != nil {
				return fmt.Errorf("add instrument %s: %w", ic.Symbol, err)
			}
			l.Info("instrument registered", applogger.String("symbol", ic.Symbol))
			continue
		}
		if cur.Active != active {
			if err := store.SetActive(ctx, ic.Symbol, active); err != nil {
				return fmt.Errorf("set active %s: %w", ic.Symbol, err)
			}
		}
	}
	return nil
}
