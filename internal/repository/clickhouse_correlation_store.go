package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
	applogger "SignalEngine/pkg/logger"
)

// CHCorrelationStore implements CorrelationStore backed by ClickHouse.
// Snapshots are append-only history; reads serve either the latest snapshot
// or the per-symbol listing the dashboard shows.
type CHCorrelationStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHCorrelationStore(ch *pkgch.Client, database string) *CHCorrelationStore {
	if database == "" {
		database = "signalengine"
	}
	return &CHCorrelationStore{db: ch.DB(), database: database}
}

func (s *CHCorrelationStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCorrelationStore) tbl() string { return s.database + ".correlations" }

func (s *CHCorrelationStore) AppendSnapshot(ctx context.Context, rows []models.Correlation) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*6)
	for _, c := range rows {
		a, b := c.Pair()
		sig := uint8(0)
		if c.Significant {
			sig = 1
		}
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args, a, b, c.ComputedAt, c.Coefficient, uint32(c.SampleSize), sig)
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol_a, symbol_b, computed_at, coefficient, sample_size, significant) VALUES %s",
		s.tbl(), strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_snapshot error", applogger.Error(err))
		}
		return fmt.Errorf("append correlation snapshot: %w", err)
	}
	return nil
}

func (s *CHCorrelationStore) LatestSnapshot(ctx context.Context) ([]models.Correlation, error) {
	q := fmt.Sprintf(`
        SELECT symbol_a, symbol_b, computed_at, coefficient, sample_size, significant
        FROM %s
        WHERE computed_at = (SELECT max(computed_at) FROM %s)
        ORDER BY symbol_a ASC, symbol_b ASC
    `, s.tbl(), s.tbl())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	defer rows.Close()
	return scanCorrelations(rows)
}

func (s *CHCorrelationStore) ListCorrelations(ctx context.Context, symbol string, significantOnly bool, limit int) ([]models.Correlation, error) {
	sigFlag := 0
	if significantOnly {
		sigFlag = 1
	}
	q := fmt.Sprintf(`
        SELECT symbol_a, symbol_b, computed_at, coefficient, sample_size, significant
        FROM %s
        WHERE (? = '' OR symbol_a = ? OR symbol_b = ?)
          AND (? = 0 OR significant = 1)
        ORDER BY computed_at DESC, symbol_a ASC, symbol_b ASC
        LIMIT ?
    `, s.tbl())
	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, symbol, sigFlag, limit)
	if err != nil {
		return nil, fmt.Errorf("list correlations: %w", err)
	}
	defer rows.Close()
	return scanCorrelations(rows)
}

func scanCorrelations(rows *sql.Rows) ([]models.Correlation, error) {
	out := make([]models.Correlation, 0, 32)
	for rows.Next() {
		var c models.Correlation
		var samples uint32
		var sig uint8
		if err := rows.Scan(&c.SymbolA, &c.SymbolB, &c.ComputedAt, &c.Coefficient, &samples, &sig); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		c.SampleSize = int(samples)
		c.Significant = sig == 1
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.CorrelationStore = (*CHCorrelationStore)(nil)
