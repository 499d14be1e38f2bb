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

// Contrarian fades extreme sentiment. It triggers only when the mean
// sentiment magnitude clears the extreme threshold while the price trend is
// flat to opposite, and predicts the inverse of the crowd.
type Contrarian struct {
	cfg config.EngineConfig
}

func NewContrarian(cfg config.EngineConfig) *Contrarian {
	return &Contrarian{cfg: cfg}
}

func (s *Contrarian) Name() string { return "contrarian" }

func (s *Contrarian) Evaluate(_ context.Context, _ models.Instrument, w models.SignalWindow, _ *models.CorrelationSnapshot) (*models.Candidate, error) {
	sent, ok := features.MeanSentiment(w.Sentiment, w.From, w.To)
	if !ok {
		return nil, nil
	}

	threshold := s.cfg.Contrarian.ExtremeThreshold
	if math.Abs(sent) < threshold {
		return nil, nil
	}

	ret, ok := features.TrailingReturn(w.Prices, s.cfg.Momentum.TrendDays)
	if !ok {
		return nil, nil
	}

	// Price must be flat or moving against the sentiment; a trend already
	// confirming the sentiment is momentum territory, not a reversal setup.
	flat := math.Abs(ret) <= s.cfg.Contrarian.FlatTrendMax
	opposite := features.Sign(ret) == -features.Sign(sent)
	if !flat && !opposite {
		return nil, nil
	}

	dir := models.DirectionDown
	if sent < 0 {
		dir = models.DirectionUp
	}

	excess := (math.Abs(sent) - threshold) / (1 - threshold)
	confidence := features.Clamp01(0.3 + 0.7*excess)

	return &models.Candidate{
		Strategy:   s.Name(),
		Direction:  dir,
		Confidence: confidence,
		Rationale: fmt.Sprintf("extreme sentiment %+.2f against flat price trend %+.2f%%, fading the crowd",
			sent, ret*100),
	}, nil
}

var _ domsvc.Strategy = (*Contrarian)(nil)
