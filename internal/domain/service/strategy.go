package service

import (
	"context"

	"SignalEngine/internal/domain/models"
)

// Strategy is the common contract every prediction strategy implements.
// Evaluate returns (nil, nil) when the strategy abstains; an abstention is
// never scored as a miss. Strategies are read-only and safe for concurrent
// use across instruments.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, inst models.Instrument, window models.SignalWindow, snapshot *models.CorrelationSnapshot) (*models.Candidate, error)
}

// SentimentScorer maps a document to a sentiment score in [-1, 1] plus an
// optional free-text rationale. The model behind it is external.
type SentimentScorer interface {
	ScoreDocument(ctx context.Context, text string) (score float64, rationale string, err error)
}
