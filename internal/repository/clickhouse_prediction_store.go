package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgch "SignalEngine/pkg/clickhouse"
	applogger "SignalEngine/pkg/logger"
)

// CHPredictionStore implements PredictionStore backed by ClickHouse. The
// one-prediction-per-(symbol, cycle date) invariant is enforced with an
// existence check before insert; cycles for a given date run one at a time,
// so the check-then-insert window is not raced in practice.
type CHPredictionStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, database string) *CHPredictionStore {
	if database == "" {
		database = "signalengine"
	}
	return &CHPredictionStore{db: ch.DB(), database: database}
}

func (s *CHPredictionStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPredictionStore) tbl(name string) string { return s.database + "." + name }

func (s *CHPredictionStore) AppendPrediction(ctx context.Context, p models.Prediction) error {
	var n uint64
	q := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE symbol = ? AND cycle_date = ?", s.tbl("predictions"))
	if err := s.db.QueryRowContext(ctx, q, p.Symbol, p.CycleDate).Scan(&n); err != nil {
		return fmt.Errorf("check prediction: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: prediction for %s on %s", models.ErrDuplicate, p.Symbol, p.CycleDate.Format(time.DateOnly))
	}

	ins := fmt.Sprintf(`INSERT INTO %s
        (id, symbol, cycle_date, target_date, horizon_days, strategy, direction, confidence, rationale, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.tbl("predictions"))
	_, err := s.db.ExecContext(ctx, ins,
		p.ID, p.Symbol, p.CycleDate, p.TargetDate, uint16(p.HorizonDays),
		p.Strategy, string(p.Direction), p.Confidence, p.Rationale, p.CreatedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse append_prediction error",
				applogger.String("symbol", p.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append prediction: %w", err)
	}
	return nil
}

func (s *CHPredictionStore) PendingPredictions(ctx context.Context, asOf time.Time) ([]models.Prediction, error) {
	q := fmt.Sprintf(`
        SELECT p.id, p.symbol, p.cycle_date, p.target_date, p.horizon_days,
               p.strategy, p.direction, p.confidence, p.rationale, p.created_at
        FROM %s AS p FINAL
        LEFT ANTI JOIN %s AS r ON p.id = r.prediction_id
        WHERE p.target_date <= ?
        ORDER BY p.target_date ASC, p.symbol ASC
    `, s.tbl("predictions"), s.tbl("results"))
	rows, err := s.db.QueryContext(ctx, q, asOf)
	if err != nil {
		return nil, fmt.Errorf("pending predictions: %w", err)
	}
	defer rows.Close()
	return scanPredictions(rows)
}

func (s *CHPredictionStore) ListPredictions(ctx context.Context, symbol string, targetDate *time.Time, limit int) ([]models.Prediction, error) {
	q := fmt.Sprintf(`
        SELECT id, symbol, cycle_date, target_date, horizon_days,
               strategy, direction, confidence, rationale, created_at
        FROM %s FINAL
        WHERE (? = '' OR symbol = ?)
          AND (? = 0 OR target_date = ?)
        ORDER BY cycle_date DESC, symbol ASC
        LIMIT ?
    `, s.tbl("predictions"))
	var tdFlag int
	td := time.Time{}
	if targetDate != nil {
		tdFlag = 1
		td = *targetDate
	}
	rows, err := s.db.QueryContext(ctx, q, symbol, symbol, tdFlag, td, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()
	return scanPredictions(rows)
}

func scanPredictions(rows *sql.Rows) ([]models.Prediction, error) {
	out := make([]models.Prediction, 0, 32)
	for rows.Next() {
		var p models.Prediction
		var horizon uint16
		var direction string
		if err := rows.Scan(&p.ID, &p.Symbol, &p.CycleDate, &p.TargetDate, &horizon,
			&p.Strategy, &direction, &p.Confidence, &p.Rationale, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.HorizonDays = int(horizon)
		p.Direction = models.Direction(direction)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var _ domrepo.PredictionStore = (*CHPredictionStore)(nil)
