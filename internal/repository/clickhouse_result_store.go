package repository

import (
	"context"
	"database/sql"
	"fmt"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
	applogger "SignalEngine/pkg/logger"
)

// CHResultStore implements ResultStore and PerformanceStore backed by
// ClickHouse. The Result log is append-only and is the source of truth the
// strategy_performance rollup is rebuilt from.
type CHResultStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client, database string) *CHResultStore {
	if database == "" {
		database = "signalengine"
	}
	return &CHResultStore{db: ch.DB(), database: database}
}

func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) tbl(name string) string { return s.database + "." + name }

func (s *CHResultStore) AppendResult(ctx context.Context, r models.Result) error {
	done, err := s.HasResult(ctx, r.PredictionID)
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("%w: result for prediction %s", models.ErrDuplicate, r.PredictionID)
	}

	ins := fmt.Sprintf(`INSERT INTO %s
        (prediction_id, symbol, strategy, evaluated_at, realized_dir, realized_return, correct)
        VALUES (?, ?, ?, ?, ?, ?, ?)`, s.tbl("results"))
	correct := uint8(0)
	if r.Correct {
		correct = 1
	}
	_, err = s.db.ExecContext(ctx, ins,
		r.PredictionID, r.Symbol, r.Strategy, r.EvaluatedAt,
		string(r.RealizedDir), r.RealizedReturn, correct,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_result error",
				applogger.String("prediction_id", r.PredictionID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (s *CHResultStore) HasResult(ctx context.Context, predictionID string) (bool, error) {
	var n uint64
	q := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE prediction_id = ?", s.tbl("results"))
	if err := s.db.QueryRowContext(ctx, q, predictionID).Scan(&n); err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return n > 0, nil
}

func (s *CHResultStore) RecentResults(ctx context.Context, strategy, scope string, limit int) ([]models.Result, error) {
	q := fmt.Sprintf(`
        SELECT prediction_id, symbol, strategy, evaluated_at, realized_dir, realized_return, correct
        FROM %s FINAL
        WHERE strategy = ? AND (? = '%s' OR symbol = ?)
        ORDER BY evaluated_at DESC
        LIMIT ?
    `, s.tbl("results"), models.GlobalScope)
	rows, err := s.db.QueryContext(ctx, q, strategy, scope, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *CHResultStore) ListResults(ctx context.Context, symbol, strategy string, limit int) ([]models.Result, error) {
	q := fmt.Sprintf(`
        SELECT prediction_id, symbol, strategy, evaluated_at, realized_dir, realized_return, correct
        FROM %s FINAL
        WHERE (? = '' OR symbol = ?) AND (? = '' OR strategy = ?)
        ORDER BY evaluated_at DESC
        LIMIT ?
    `, s.tbl("results"))
	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, strategy, strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (s *CHResultStore) Accuracy(ctx context.Context) (models.AccuracySummary, error) {
	var sum models.AccuracySummary
	q := fmt.Sprintf("SELECT count(), countIf(correct = 1) FROM %s FINAL", s.tbl("results"))
	if err := s.db.QueryRowContext(ctx, q).Scan(&sum.Evaluated, &sum.Correct); err != nil {
		return sum, fmt.Errorf("accuracy rollup: %w", err)
	}
	if sum.Evaluated > 0 {
		sum.HitRate = float64(sum.Correct) / float64(sum.Evaluated)
	}

	pq := fmt.Sprintf(`
        SELECT count()
        FROM %s AS p FINAL
        LEFT ANTI JOIN %s AS r ON p.id = r.prediction_id
    `, s.tbl("predictions"), s.tbl("results"))
	if err := s.db.QueryRowContext(ctx, pq).Scan(&sum.Pending); err != nil {
		return sum, fmt.Errorf("pending count: %w", err)
	}
	return sum, nil
}

func (s *CHResultStore) GetPerformance(ctx context.Context, strategy, scope string) (models.StrategyPerformance, bool, error) {
	q := fmt.Sprintf(`
        SELECT strategy, scope, hit_rate, sample_count, updated_at
        FROM %s FINAL
        WHERE strategy = ? AND scope = ?
    `, s.tbl("strategy_performance"))
	var p models.StrategyPerformance
	var samples uint32
	err := s.db.QueryRowContext(ctx, q, strategy, scope).Scan(&p.Strategy, &p.Scope, &p.HitRate, &samples, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.StrategyPerformance{}, false, nil
	}
	if err != nil {
		return models.StrategyPerformance{}, false, fmt.Errorf("get performance: %w", err)
	}
	p.SampleCount = int(samples)
	return p, true, nil
}

func (s *CHResultStore) UpsertPerformance(ctx context.Context, p models.StrategyPerformance) error {
	// ReplacingMergeTree(updated_at) keeps the newest row per (strategy, scope).
	ins := fmt.Sprintf(`INSERT INTO %s (strategy, scope, hit_rate, sample_count, updated_at)
        VALUES (?, ?, ?, ?, ?)`, s.tbl("strategy_performance"))
	_, err := s.db.ExecContext(ctx, ins, p.Strategy, p.Scope, p.HitRate, uint32(p.SampleCount), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert performance: %w", err)
	}
	return nil
}

func (s *CHResultStore) ListPerformance(ctx context.Context, strategy, scope string) ([]models.StrategyPerformance, error) {
	q := fmt.Sprintf(`
        SELECT strategy, scope, hit_rate, sample_count, updated_at
        FROM %s FINAL
        WHERE (? = '' OR strategy = ?) AND (? = '' OR scope = ?)
        ORDER BY strategy ASC, scope ASC
    `, s.tbl("strategy_performance"))
	rows, err := s.db.QueryContext(ctx, q, strategy, strategy, scope, scope)
	if err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}
	defer rows.Close()

	out := make([]models.StrategyPerformance, 0, 16)
	for rows.Next() {
		var p models.StrategyPerformance
		var samples uint32
		if err := rows.Scan(&p.Strategy, &p.Scope, &p.HitRate, &samples, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		p.SampleCount = int(samples)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]models.Result, error) {
	out := make([]models.Result, 0, 32)
	for rows.Next() {
		var r models.Result
		var dir string
		var correct uint8
		if err := rows.Scan(&r.PredictionID, &r.Symbol, &r.Strategy, &r.EvaluatedAt,
			&dir, &r.RealizedReturn, &correct); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.RealizedDir = models.Direction(dir)
		r.Correct = correct == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var (
	_ domrepo.ResultStore      = (*CHResultStore)(nil)
	_ domrepo.PerformanceStore = (*CHResultStore)(nil)
)
