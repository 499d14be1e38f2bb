package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
	applogger "SignalEngine/pkg/logger"
)

// CHSignalStore implements SignalStore and SignalWriter backed by ClickHouse.
// All writes go through ReplacingMergeTree tables, so replayed inserts for an
// existing bar or document collapse to one row.
type CHSignalStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHSignalStore(ch *pkgch.Client, database string) *CHSignalStore {
	if database == "" {
		database = "signalengine"
	}
	return &CHSignalStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHSignalStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSignalStore) tbl(name string) string { return s.database + "." + name }

func (s *CHSignalStore) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceObservation, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, s.tbl("price_bars"))
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logErr("get_price_history", symbol, err)
		return nil, fmt.Errorf("get price history: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceObservation, 0, 64)
	for rows.Next() {
		var b models.PriceObservation
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logErr("get_price_history", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("get_price_history", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_price_history ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHSignalStore) GetSentiment(ctx context.Context, symbol string, from, to time.Time) ([]models.SentimentRecord, error) {
	q := fmt.Sprintf(`
        SELECT symbol, ts, source, score, label, document_id, rationale
        FROM %s FINAL
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `, s.tbl("sentiment"))
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logErr("get_sentiment", symbol, err)
		return nil, fmt.Errorf("get sentiment: %w", err)
	}
	defer rows.Close()

	out := make([]models.SentimentRecord, 0, 64)
	for rows.Next() {
		var r models.SentimentRecord
		var source string
		if err := rows.Scan(&r.Symbol, &r.Timestamp, &source, &r.Score, &r.Label, &r.DocumentID, &r.Rationale); err != nil {
			s.logErr("get_sentiment", symbol, err)
			return nil, fmt.Errorf("scan sentiment: %w", err)
		}
		r.Source = models.SentimentSource(source)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logErr("get_sentiment", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHSignalStore) GetSignalWindow(ctx context.Context, symbol string, from, to time.Time) (models.SignalWindow, error) {
	prices, err := s.GetPriceHistory(ctx, symbol, from, to)
	if err != nil {
		return models.SignalWindow{}, err
	}
	sentiment, err := s.GetSentiment(ctx, symbol, from, to)
	if err != nil {
		return models.SignalWindow{}, err
	}
	// Both queries order ascending already; keep the invariant explicit for
	// callers that mutate the window.
	sort.SliceStable(sentiment, func(i, j int) bool { return sentiment[i].Timestamp.Before(sentiment[j].Timestamp) })
	return models.SignalWindow{
		Symbol:    symbol,
		From:      from,
		To:        to,
		Prices:    prices,
		Sentiment: sentiment,
	}, nil
}

func (s *CHSignalStore) ClosePriceOnOrAfter(ctx context.Context, symbol string, date time.Time) (float64, error) {
	q := fmt.Sprintf(`
        SELECT close FROM %s FINAL
        WHERE symbol = ? AND date >= ?
        ORDER BY date ASC
        LIMIT 1
    `, s.tbl("price_bars"))
	return s.scanClose(ctx, q, symbol, date)
}

func (s *CHSignalStore) ClosePriceOnOrBefore(ctx context.Context, symbol string, date time.Time) (float64, error) {
	q := fmt.Sprintf(`
        SELECT close FROM %s FINAL
        WHERE symbol = ? AND date <= ?
        ORDER BY date DESC
        LIMIT 1
    `, s.tbl("price_bars"))
	return s.scanClose(ctx, q, symbol, date)
}

func (s *CHSignalStore) scanClose(ctx context.Context, q, symbol string, date time.Time) (float64, error) {
	var close float64
	err := s.db.QueryRowContext(ctx, q, symbol, date).Scan(&close)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: no close for %s around %s", models.ErrUnresolved, symbol, date.Format(time.DateOnly))
	}
	if err != nil {
		s.logErr("close_price", symbol, err)
		return 0, fmt.Errorf("close price: %w", err)
	}
	return close, nil
}

func (s *CHSignalStore) StorePrices(ctx context.Context, bars []models.PriceObservation) error {
	if len(bars) == 0 {
		return nil
	}
	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*7)
	for _, b := range bars {
		if b.Symbol == "" || b.Date.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES %s",
		s.tbl("price_bars"), strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logErr("store_prices", bars[0].Symbol, err)
		return fmt.Errorf("store prices: %w", err)
	}
	return nil
}

func (s *CHSignalStore) StoreSentiment(ctx context.Context, recs []models.SentimentRecord) error {
	if len(recs) == 0 {
		return nil
	}
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*7)
	for _, r := range recs {
		if r.Symbol == "" || r.DocumentID == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.Symbol, r.Timestamp, string(r.Source), r.Score, r.Label, r.DocumentID, r.Rationale)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, ts, source, score, label, document_id, rationale) VALUES %s",
		s.tbl("sentiment"), strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logErr("store_sentiment", recs[0].Symbol, err)
		return fmt.Errorf("store sentiment: %w", err)
	}
	return nil
}

func (s *CHSignalStore) logErr(op, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+op+" error",
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

var (
	_ domrepo.SignalStore  = (*CHSignalStore)(nil)
	_ domrepo.SignalWriter = (*CHSignalStore)(nil)
)
