package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/pkg/config"
	xhttp "SignalEngine/pkg/http"
)

// HTTPScorer scores documents through the external sentiment service. The
// model behind the service is opaque; this client only validates the score
// range.
type HTTPScorer struct {
	baseURL string
	client  *xhttp.Client
}

func NewHTTPScorer(cfg *config.Config) *HTTPScorer {
	timeout := cfg.Sentiment.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPScorer{
		baseURL: cfg.Sentiment.BaseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type scoreResponse struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

func (s *HTTPScorer) ScoreDocument(ctx context.Context, text string) (float64, string, error) {
	if s.baseURL == "" {
		return 0, "", fmt.Errorf("sentiment service not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", fmt.Errorf("empty document")
	}

	var resp scoreResponse
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.baseURL + "/v1/score",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: map[string]string{"text": text},
	}, &resp)
	if err != nil {
		return 0, "", fmt.Errorf("score document: %w", err)
	}
	if resp.Score < -1 || resp.Score > 1 {
		return 0, "", fmt.Errorf("score %f out of range", resp.Score)
	}
	return resp.Score, resp.Rationale, nil
}

var _ domsvc.SentimentScorer = (*HTTPScorer)(nil)
