package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/util"
)

// strategyPriority is the deterministic tie-break order. Lower wins.
var strategyPriority = map[string]int{
	"correlation": 0,
	"momentum":    1,
	"news_impact": 2,
	"contrarian":  3,
}

// Selector picks, per instrument per cycle, which strategy's candidate to
// publish. Candidates are scored as confidence times the strategy's
// adaptively-updated weight; exactly one prediction (or none) is published.
type Selector struct {
	perf domrepo.PerformanceStore
	cfg  config.EngineConfig
	l    *applogger.Logger
}

func NewSelector(perf domrepo.PerformanceStore, cfg config.EngineConfig, l *applogger.Logger) *Selector {
	return &Selector{perf: perf, cfg: cfg, l: l}
}

type scoredCandidate struct {
	cand    models.Candidate
	weight  float64
	score   float64
	samples int
}

// Select returns the winning prediction for the instrument, or nil when the
// candidate set is empty. Re-running with the same candidates and the same
// performance history yields the same winner.
func (s *Selector) Select(ctx context.Context, inst models.Instrument, cycleDate time.Time, candidates []models.Candidate) (*models.Prediction, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		weight, samples, err := s.weight(ctx, c.Strategy, inst.Symbol)
		if err != nil {
			return nil, fmt.Errorf("weight %s/%s: %w", c.Strategy, inst.Symbol, err)
		}
		scored = append(scored, scoredCandidate{
			cand:    c,
			weight:  weight,
			score:   c.Confidence * weight,
			samples: samples,
		})
	}

	best := scored[0]
	for _, sc := range scored[1:] {
		if s.beats(sc, best) {
			best = sc
		}
	}

	if s.l != nil {
		s.l.Debug("candidate selected",
			applogger.String("symbol", inst.Symbol),
			applogger.String("strategy", best.cand.Strategy),
			applogger.Float64("score", best.score),
			applogger.Float64("weight", best.weight),
			applogger.Int("candidates", len(candidates)),
		)
	}

	horizon := s.cfg.Evaluation.HorizonDays
	return &models.Prediction{
		ID:          uuid.NewString(),
		Symbol:      inst.Symbol,
		CycleDate:   cycleDate,
		TargetDate:  util.AddTradingDays(cycleDate, horizon),
		HorizonDays: horizon,
		Strategy:    best.cand.Strategy,
		Direction:   best.cand.Direction,
		Confidence:  best.cand.Confidence,
		Rationale:   best.cand.Rationale,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// beats reports whether a should replace b as the running winner.
// Tie-break: higher score, then larger sample count, then fixed priority.
func (s *Selector) beats(a, b scoredCandidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.samples != b.samples {
		return a.samples > b.samples
	}
	return strategyPriority[a.cand.Strategy] < strategyPriority[b.cand.Strategy]
}

// weight derives the selection weight for a strategy on an instrument from
// its rolling hit rate. Instrument-specific history is used when it has
// enough samples, otherwise the global bucket; with no history at all the
// neutral prior applies (cold start).
func (s *Selector) weight(ctx context.Context, strategy, symbol string) (float64, int, error) {
	instPerf, ok, err := s.perf.GetPerformance(ctx, strategy, symbol)
	if err != nil {
		return 0, 0, err
	}
	if ok && instPerf.SampleCount >= s.cfg.Selector.MinInstrumentSamples {
		return instPerf.HitRate, instPerf.SampleCount, nil
	}

	global, ok, err := s.perf.GetPerformance(ctx, strategy, models.GlobalScope)
	if err != nil {
		return 0, 0, err
	}
	if ok && global.SampleCount > 0 {
		return global.HitRate, global.SampleCount, nil
	}

	return s.cfg.Selector.NeutralWeight, 0, nil
}
