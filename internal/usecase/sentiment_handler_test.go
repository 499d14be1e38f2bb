package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalEngine/internal/domain/models"
)

type captureWriter struct {
	bars []models.PriceObservation
	recs []models.SentimentRecord
}

func (w *captureWriter) StorePrices(_ context.Context, bars []models.PriceObservation) error {
	w.bars = append(w.bars, bars...)
	return nil
}

func (w *captureWriter) StoreSentiment(_ context.Context, recs []models.SentimentRecord) error {
	w.recs = append(w.recs, recs...)
	return nil
}

type fixedScorer struct {
	score     float64
	rationale string
	err       error
}

func (s fixedScorer) ScoreDocument(context.Context, string) (float64, string, error) {
	return s.score, s.rationale, s.err
}

func TestSentimentHandlerStoresPreScoredDocument(t *testing.T) {
	w := &captureWriter{}
	h := NewSentimentHandler("docs", nil, w, nopMetrics{})
	assert.Equal(t, "docs", h.Topic())

	msg := []byte(`{"symbol":"AAPL","source":"news","timestamp":1767312000,"document_id":"d1","text":"earnings beat","score":0.72}`)
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, w.recs, 1)
	rec := w.recs[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, models.SourceNews, rec.Source)
	assert.Equal(t, "d1", rec.DocumentID)
	assert.InDelta(t, 0.72, rec.Score, 1e-12)
	assert.Equal(t, "positive", rec.Label)
	assert.Equal(t, time.Unix(1767312000, 0).UTC(), rec.Timestamp)
}

func TestSentimentHandlerScoresUnscoredDocument(t *testing.T) {
	w := &captureWriter{}
	h := NewSentimentHandler("docs", fixedScorer{score: -0.6, rationale: "guidance cut"}, w, nopMetrics{})

	msg := []byte(`{"symbol":"MSFT","source":"social","timestamp":1767312000,"document_id":"d2","text":"rough quarter"}`)
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, w.recs, 1)
	assert.InDelta(t, -0.6, w.recs[0].Score, 1e-12)
	assert.Equal(t, "negative", w.recs[0].Label)
	assert.Equal(t, "guidance cut", w.recs[0].Rationale)
}

func TestSentimentHandlerFoldsMillisecondTimestamps(t *testing.T) {
	w := &captureWriter{}
	h := NewSentimentHandler("docs", nil, w, nopMetrics{})

	msg := []byte(`{"symbol":"AAPL","source":"news","timestamp":1767312000000,"document_id":"d3","score":0.1}`)
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, w.recs, 1)
	assert.Equal(t, time.Unix(1767312000, 0).UTC(), w.recs[0].Timestamp)
}

func TestSentimentHandlerRejectsBadInput(t *testing.T) {
	w := &captureWriter{}
	h := NewSentimentHandler("docs", nil, w, nopMetrics{})
	ctx := context.Background()

	cases := map[string]string{
		"malformed json":     `{`,
		"missing symbol":     `{"source":"news","timestamp":1,"document_id":"d","score":0.5}`,
		"missing document":   `{"symbol":"AAPL","source":"news","timestamp":1,"score":0.5}`,
		"unknown source":     `{"symbol":"AAPL","source":"blog","timestamp":1,"document_id":"d","score":0.5}`,
		"score too high":     `{"symbol":"AAPL","source":"news","timestamp":1,"document_id":"d","score":1.5}`,
		"no score no scorer": `{"symbol":"AAPL","source":"news","timestamp":1,"document_id":"d","text":"x"}`,
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, h.Handle(ctx, []byte(msg)))
		})
	}
	assert.Empty(t, w.recs)
}

func TestSentimentHandlerPropagatesScorerFailure(t *testing.T) {
	w := &captureWriter{}
	h := NewSentimentHandler("docs", fixedScorer{err: models.ErrTransient}, w, nopMetrics{})

	msg := []byte(`{"symbol":"AAPL","source":"news","timestamp":1,"document_id":"d4","text":"x"}`)
	err := h.Handle(context.Background(), msg)
	require.ErrorIs(t, err, models.ErrTransient)
	assert.Empty(t, w.recs)
}
