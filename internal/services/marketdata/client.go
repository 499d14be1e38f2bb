package marketdata

import (
	"context"
	"fmt"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/internal/service/ratelimit"
	"SignalEngine/pkg/config"
	xhttp "SignalEngine/pkg/http"
	applogger "SignalEngine/pkg/logger"
)

// Client fetches daily OHLCV bars from the external market data provider.
// Provider failures surface as models.ErrTransient so the refresh pass
// skips the instrument instead of aborting the cycle.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	maxRPS     float64
	burst      float64
	http       *xhttp.Client
	limiter    *ratelimit.Limiter
	l          *applogger.Logger
}

func NewClient(cfg *config.Config, l *applogger.Logger) *Client {
	timeout := cfg.MarketData.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.MarketData.BaseURL,
		apiKey:     cfg.MarketData.APIKey,
		maxRetries: cfg.MarketData.MaxRetries,
		maxRPS:     cfg.MarketData.MaxRPS,
		burst:      cfg.MarketData.BurstSize,
		http:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:    ratelimit.New(),
		l:          l,
	}
}

type barsResponse struct {
	Symbol string `json:"symbol"`
	Bars   []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	} `json:"bars"`
}

func (c *Client) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceObservation, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: market data base_url not configured", models.ErrTransient)
	}
	if err := c.waitForToken(ctx); err != nil {
		return nil, err
	}

	var resp barsResponse
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.baseURL + "/v1/bars/daily",
			Headers: map[string]string{
				"X-API-Key": c.apiKey,
			},
			QueryParams: map[string][]string{
				"symbol": {symbol},
				"from":   {from.Format(time.DateOnly)},
				"to":     {to.Format(time.DateOnly)},
			},
		}, &resp)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch bars for %s: %s", models.ErrTransient, symbol, err)
	}

	out := make([]models.PriceObservation, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		date, err := time.Parse(time.DateOnly, b.Date)
		if err != nil {
			if c.l != nil {
				c.l.Warn("bar with malformed date dropped",
					applogger.String("symbol", symbol),
					applogger.String("date", b.Date),
				)
			}
			continue
		}
		if b.Close <= 0 {
			continue
		}
		out = append(out, models.PriceObservation{
			Symbol: symbol,
			Date:   date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return out, nil
}

// waitForToken blocks until the provider rate budget admits one request.
func (c *Client) waitForToken(ctx context.Context) error {
	for {
		if c.limiter.Allow("market_data", c.burst, c.maxRPS) {
			return nil
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var _ domrepo.MarketData = (*Client)(nil)
