package strategies

import (
	"context"
	"fmt"
	"math"
	"time"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/features"
	"SignalEngine/pkg/config"
)

// NewsImpact trades on the single most impactful recent news item. Impact
// decays with age; without qualifying news inside the recent window the
// strategy abstains.
type NewsImpact struct {
	cfg config.EngineConfig
}

func NewNewsImpact(cfg config.EngineConfig) *NewsImpact {
	return &NewsImpact{cfg: cfg}
}

func (s *NewsImpact) Name() string { return "news_impact" }

func (s *NewsImpact) Evaluate(_ context.Context, _ models.Instrument, w models.SignalWindow, _ *models.CorrelationSnapshot) (*models.Candidate, error) {
	cutoff := w.To.AddDate(0, 0, -s.cfg.NewsImpact.RecentDays)
	recent := w.NewsSince(cutoff)
	if len(recent) == 0 {
		return nil, nil
	}

	best := recent[0]
	for _, r := range recent[1:] {
		if math.Abs(r.Score) > math.Abs(best.Score) {
			best = r
		}
	}
	if best.Score == 0 {
		return nil, nil
	}

	dir := models.DirectionUp
	if best.Score < 0 {
		dir = models.DirectionDown
	}

	ageDays := w.To.Sub(best.Timestamp).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	decay := math.Pow(0.5, ageDays/s.cfg.NewsImpact.DecayHalfLife)
	confidence := features.Clamp01(math.Abs(best.Score) * decay)

	return &models.Candidate{
		Strategy:   s.Name(),
		Direction:  dir,
		Confidence: confidence,
		Rationale: fmt.Sprintf("news item %s scored %+.2f on %s, recency-decayed impact %.2f",
			best.DocumentID, best.Score, best.Timestamp.Format(time.DateOnly), confidence),
	}, nil
}

var _ domsvc.Strategy = (*NewsImpact)(nil)
