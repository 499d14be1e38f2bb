package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/services/correlation"
)

type memInstrumentStore struct {
	mu          sync.Mutex
	instruments []models.Instrument
}

func (m *memInstrumentStore) ActiveInstruments(context.Context) ([]models.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Instrument, 0, len(m.instruments))
	for _, inst := range m.instruments {
		if inst.Active {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *memInstrumentStore) ListInstruments(context.Context) ([]models.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Instrument(nil), m.instruments...), nil
}

func (m *memInstrumentStore) AddInstrument(_ context.Context, inst models.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.instruments {
		if existing.Symbol == inst.Symbol {
			return models.ErrDuplicate
		}
	}
	m.instruments = append(m.instruments, inst)
	return nil
}

func (m *memInstrumentStore) SetActive(_ context.Context, symbol string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.instruments {
		if m.instruments[i].Symbol == symbol {
			m.instruments[i].Active = active
		}
	}
	return nil
}

type memCorrelationStore struct {
	mu        sync.Mutex
	snapshots [][]models.Correlation
}

func (m *memCorrelationStore) AppendSnapshot(_ context.Context, rows []models.Correlation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, rows)
	return nil
}

func (m *memCorrelationStore) LatestSnapshot(context.Context) ([]models.Correlation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	return m.snapshots[len(m.snapshots)-1], nil
}

func (m *memCorrelationStore) ListCorrelations(context.Context, string, bool, int) ([]models.Correlation, error) {
	return m.LatestSnapshot(context.Background())
}

type capturePublisher struct {
	mu     sync.Mutex
	events []models.PredictionEvent
}

func (p *capturePublisher) PublishPrediction(_ context.Context, ev models.PredictionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

// stubStrategy returns a fixed candidate, or abstains when cand is nil.
type stubStrategy struct {
	name string
	cand *models.Candidate
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Evaluate(context.Context, models.Instrument, models.SignalWindow, *models.CorrelationSnapshot) (*models.Candidate, error) {
	if s.cand == nil {
		return nil, nil
	}
	c := *s.cand
	return &c, nil
}

func newCycleFixture(t *testing.T, strategies []domsvc.Strategy) (*PredictionCycle, *memInstrumentStore, *memPredictionStore, *capturePublisher) {
	t.Helper()
	cfg := testEngineConfig(t)
	l := testLogger(t)

	instruments := &memInstrumentStore{instruments: []models.Instrument{
		{Symbol: "AAPL", Name: "Apple Inc.", Active: true},
		{Symbol: "MSFT", Name: "Microsoft", Active: true},
	}}
	signals := newMemSignalStore()
	results := newMemResultStore()
	predictions := newMemPredictionStore(results)
	corrStore := &memCorrelationStore{}
	pub := &capturePublisher{}

	cycle := NewPredictionCycle(
		instruments,
		signals,
		correlation.NewEngine(signals, cfg, l),
		corrStore,
		strategies,
		NewSelector(results, cfg, l),
		predictions,
		[]domrepo.Publisher{pub},
		nopMetrics{},
		cfg,
		l,
	)
	return cycle, instruments, predictions, pub
}

func TestPredictionCyclePublishesWinner(t *testing.T) {
	up := &models.Candidate{Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.9}
	down := &models.Candidate{Strategy: "contrarian", Direction: models.DirectionDown, Confidence: 0.2}
	cycle, _, predictions, pub := newCycleFixture(t, []domsvc.Strategy{
		stubStrategy{name: "momentum", cand: up},
		stubStrategy{name: "contrarian", cand: down},
	})

	cycleDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cycle.Run(context.Background(), cycleDate))

	preds, err := predictions.ListPredictions(context.Background(), "", nil, 10)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	for _, p := range preds {
		assert.Equal(t, "momentum", p.Strategy)
		assert.Equal(t, models.DirectionUp, p.Direction)
		assert.Equal(t, cycleDate, p.CycleDate)
		assert.NotEmpty(t, p.ID)
	}

	require.Len(t, pub.events, 2)
	assert.Equal(t, cycleDate.Format(time.DateOnly), pub.events[0].Cycle)
}

func TestPredictionCycleAllAbstain(t *testing.T) {
	cycle, _, predictions, pub := newCycleFixture(t, []domsvc.Strategy{
		stubStrategy{name: "momentum"},
		stubStrategy{name: "contrarian"},
	})

	require.NoError(t, cycle.Run(context.Background(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

	preds, err := predictions.ListPredictions(context.Background(), "", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, preds)
	assert.Empty(t, pub.events)
}

func TestPredictionCycleNoInstruments(t *testing.T) {
	cycle, instruments, _, _ := newCycleFixture(t, []domsvc.Strategy{stubStrategy{name: "momentum"}})
	for _, inst := range instruments.instruments {
		require.NoError(t, instruments.SetActive(context.Background(), inst.Symbol, false))
	}

	err := cycle.Run(context.Background(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, models.ErrNoInstruments)
}

func TestPredictionCycleRerunKeepsOriginal(t *testing.T) {
	up := &models.Candidate{Strategy: "momentum", Direction: models.DirectionUp, Confidence: 0.9}
	cycle, _, predictions, pub := newCycleFixture(t, []domsvc.Strategy{stubStrategy{name: "momentum", cand: up}})

	cycleDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, cycle.Run(context.Background(), cycleDate))
	require.NoError(t, cycle.Run(context.Background(), cycleDate))

	preds, err := predictions.ListPredictions(context.Background(), "AAPL", nil, 10)
	require.NoError(t, err)
	assert.Len(t, preds, 1, "second run must not overwrite or duplicate")

	// Only the first run publishes events.
	assert.Len(t, pub.events, 2)
}
