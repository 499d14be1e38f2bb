package strategies

import (
	"context"
	"fmt"
	"math"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/features"
	"SignalEngine/pkg/config"
)

// CorrelationStrategy projects a significantly correlated peer's trend onto
// the instrument. A negative coefficient inverts the peer's direction. With
// no significant correlation in the snapshot the strategy abstains; a
// missing pair means "unknown", never "zero correlation".
type CorrelationStrategy struct {
	store domrepo.SignalStore
	cfg   config.EngineConfig
}

func NewCorrelationStrategy(store domrepo.SignalStore, cfg config.EngineConfig) *CorrelationStrategy {
	return &CorrelationStrategy{store: store, cfg: cfg}
}

func (s *CorrelationStrategy) Name() string { return "correlation" }

func (s *CorrelationStrategy) Evaluate(ctx context.Context, inst models.Instrument, w models.SignalWindow, snapshot *models.CorrelationSnapshot) (*models.Candidate, error) {
	significant := snapshot.Significant(inst.Symbol)
	if len(significant) == 0 {
		return nil, nil
	}

	// Strongest relationship wins; equal strength falls back to the
	// lexicographically first peer so reruns pick the same pair.
	best := significant[0]
	for _, c := range significant[1:] {
		switch {
		case math.Abs(c.Coefficient) > math.Abs(best.Coefficient):
			best = c
		case math.Abs(c.Coefficient) == math.Abs(best.Coefficient) &&
			c.Other(inst.Symbol) < best.Other(inst.Symbol):
			best = c
		}
	}
	peer := best.Other(inst.Symbol)

	peerWindow, err := s.store.GetPriceHistory(ctx, peer, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("peer history %s: %w", peer, err)
	}
	peerRet, ok := features.TrailingReturn(peerWindow, s.cfg.Momentum.TrendDays)
	if !ok {
		return nil, nil
	}

	dirSign := features.Sign(peerRet) * features.Sign(best.Coefficient)
	if dirSign == 0 {
		return nil, nil
	}
	dir := models.DirectionUp
	if dirSign < 0 {
		dir = models.DirectionDown
	}

	relation := "moves with"
	if best.Coefficient < 0 {
		relation = "moves against"
	}

	return &models.Candidate{
		Strategy:   s.Name(),
		Direction:  dir,
		Confidence: features.Clamp01(math.Abs(best.Coefficient)),
		Rationale: fmt.Sprintf("%s %s %s (coefficient %+.2f, n=%d), peer %dd return %+.2f%%",
			inst.Symbol, relation, peer, best.Coefficient, best.SampleSize,
			s.cfg.Momentum.TrendDays, peerRet*100),
	}, nil
}

var _ domsvc.Strategy = (*CorrelationStrategy)(nil)
