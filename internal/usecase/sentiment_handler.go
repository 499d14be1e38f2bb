package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	pkgkafka "SignalEngine/pkg/kafka"
)

// SentimentHandler consumes raw documents from Kafka, scores them, and
// persists the scored records. Documents that already carry a score skip
// the scorer; a nil scorer rejects unscored documents.
type SentimentHandler struct {
	topic   string
	scorer  domsvc.SentimentScorer
	writer  domrepo.SignalWriter
	metrics domrepo.Metrics
}

func NewSentimentHandler(topic string, scorer domsvc.SentimentScorer, writer domrepo.SignalWriter, metrics domrepo.Metrics) *SentimentHandler {
	return &SentimentHandler{topic: topic, scorer: scorer, writer: writer, metrics: metrics}
}

func (h *SentimentHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, source, timestamp, document_id, text, score?}
func (h *SentimentHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol     string   `json:"symbol"`
		Source     string   `json:"source"`
		Timestamp  int64    `json:"timestamp"`
		DocumentID string   `json:"document_id"`
		Text       string   `json:"text"`
		Score      *float64 `json:"score"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("sentiment_unmarshal")
		return err
	}
	if m.Symbol == "" || m.DocumentID == "" {
		h.metrics.RecordError("sentiment_invalid")
		return fmt.Errorf("sentiment document missing symbol or document_id")
	}
	if m.Timestamp > 1e11 { // ms
		m.Timestamp = m.Timestamp / 1000
	}

	source := models.SentimentSource(m.Source)
	if source != models.SourceNews && source != models.SourceSocial {
		h.metrics.RecordError("sentiment_invalid")
		return fmt.Errorf("unknown sentiment source %q", m.Source)
	}

	var score float64
	var rationale string
	switch {
	case m.Score != nil:
		score = *m.Score
	case h.scorer != nil:
		var err error
		score, rationale, err = h.scorer.ScoreDocument(ctx, m.Text)
		if err != nil {
			h.metrics.RecordError("sentiment_score")
			return fmt.Errorf("score document %s: %w", m.DocumentID, err)
		}
	default:
		h.metrics.RecordError("sentiment_unscored")
		return fmt.Errorf("document %s has no score and no scorer is configured", m.DocumentID)
	}
	if score < -1 || score > 1 {
		h.metrics.RecordError("sentiment_invalid")
		return fmt.Errorf("score %f out of range for document %s", score, m.DocumentID)
	}

	rec := models.SentimentRecord{
		Symbol:     m.Symbol,
		Timestamp:  time.Unix(m.Timestamp, 0).UTC(),
		Source:     source,
		Score:      score,
		Label:      models.SentimentLabel(score),
		DocumentID: m.DocumentID,
		Rationale:  rationale,
	}
	if err := h.writer.StoreSentiment(ctx, []models.SentimentRecord{rec}); err != nil {
		h.metrics.RecordError("sentiment_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*SentimentHandler)(nil)
