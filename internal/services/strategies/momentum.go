package strategies

import (
	"context"
	"fmt"
	"math"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/features"
	"SignalEngine/pkg/config"
)

// Momentum follows the trailing price trend when sentiment agrees with it.
// Price and sentiment disagreeing in sign is a contradictory signal, so the
// strategy abstains rather than guessing.
type Momentum struct {
	cfg config.EngineConfig
}

func NewMomentum(cfg config.EngineConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Evaluate(_ context.Context, _ models.Instrument, w models.SignalWindow, _ *models.CorrelationSnapshot) (*models.Candidate, error) {
	ret, ok := features.TrailingReturn(w.Prices, s.cfg.Momentum.TrendDays)
	if !ok {
		return nil, nil
	}
	sentTrend, ok := features.SentimentTrend(w.Sentiment, w.From, w.To)
	if !ok {
		return nil, nil
	}

	priceSign := features.Sign(ret)
	sentSign := features.Sign(sentTrend)
	if priceSign == 0 || sentSign == 0 || priceSign != sentSign {
		return nil, nil
	}

	dir := models.DirectionUp
	if priceSign < 0 {
		dir = models.DirectionDown
	}

	// Confidence grows with trend magnitude and with how strongly the two
	// signals agree.
	agreement := math.Min(math.Abs(sentTrend), 1)
	confidence := features.Clamp01(0.4 + 4*math.Abs(ret) + 0.3*agreement)

	return &models.Candidate{
		Strategy:   s.Name(),
		Direction:  dir,
		Confidence: confidence,
		Rationale: fmt.Sprintf("%dd return %+.2f%% with agreeing sentiment trend %+.2f",
			s.cfg.Momentum.TrendDays, ret*100, sentTrend),
	}, nil
}

var _ domsvc.Strategy = (*Momentum)(nil)
