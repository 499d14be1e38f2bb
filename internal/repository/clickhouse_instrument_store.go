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

// CHInstrumentStore implements InstrumentStore backed by ClickHouse. The
// table is a ReplacingMergeTree keyed by symbol, so updates are fresh rows
// and deletes never happen.
type CHInstrumentStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHInstrumentStore(ch *pkgch.Client, database string) *CHInstrumentStore {
	if database == "" {
		database = "signalengine"
	}
	return &CHInstrumentStore{db: ch.DB(), database: database}
}

func (s *CHInstrumentStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHInstrumentStore) tbl() string { return s.database + ".instruments" }

func (s *CHInstrumentStore) ActiveInstruments(ctx context.Context) ([]models.Instrument, error) {
	return s.list(ctx, true)
}

func (s *CHInstrumentStore) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	return s.list(ctx, false)
}

func (s *CHInstrumentStore) list(ctx context.Context, activeOnly bool) ([]models.Instrument, error) {
	flag := 0
	if activeOnly {
		flag = 1
	}
	q := fmt.Sprintf(`
        SELECT symbol, name, sector, active, created_at
        FROM %s FINAL
        WHERE (? = 0 OR active = 1)
        ORDER BY symbol ASC
    `, s.tbl())
	rows, err := s.db.QueryContext(ctx, q, flag)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_instruments error", applogger.Error(err))
		}
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Instrument, 0, 16)
	for rows.Next() {
		var inst models.Instrument
		var active uint8
		if err := rows.Scan(&inst.Symbol, &inst.Name, &inst.Sector, &active, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		inst.Active = active == 1
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *CHInstrumentStore) AddInstrument(ctx context.Context, inst models.Instrument) error {
	existing, err := s.get(ctx, inst.Symbol)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: instrument %s", models.ErrDuplicate, inst.Symbol)
	}
	active := uint8(0)
	if inst.Active {
		active = 1
	}
	ins := fmt.Sprintf("INSERT INTO %s (symbol, name, sector, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)", s.tbl())
	if _, err := s.db.ExecContext(ctx, ins, inst.Symbol, inst.Name, inst.Sector, active, inst.CreatedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("add instrument: %w", err)
	}
	return nil
}

func (s *CHInstrumentStore) SetActive(ctx context.Context, symbol string, active bool) error {
	existing, err := s.get(ctx, symbol)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("instrument %s not found", symbol)
	}
	flag := uint8(0)
	if active {
		flag = 1
	}
	// Fresh row wins in the ReplacingMergeTree; created_at is preserved.
	ins := fmt.Sprintf("INSERT INTO %s (symbol, name, sector, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)", s.tbl())
	if _, err := s.db.ExecContext(ctx, ins, existing.Symbol, existing.Name, existing.Sector, flag, existing.CreatedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

func (s *CHInstrumentStore) get(ctx context.Context, symbol string) (*models.Instrument, error) {
	q := fmt.Sprintf("SELECT symbol, name, sector, active, created_at FROM %s FINAL WHERE symbol = ?", s.tbl())
	var inst models.Instrument
	var active uint8
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&inst.Symbol, &inst.Name, &inst.Sector, &active, &inst.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instrument: %w", err)
	}
	inst.Active = active == 1
	return &inst, nil
}

var _ domrepo.InstrumentStore = (*CHInstrumentStore)(nil)
