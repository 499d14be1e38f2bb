package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalEngine/internal/domain/models"
	"SignalEngine/pkg/config"
)

type stubProvider struct {
	bars map[string][]models.PriceObservation
	errs map[string]error
}

func (p *stubProvider) GetPriceHistory(_ context.Context, symbol string, _, _ time.Time) ([]models.PriceObservation, error) {
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	return p.bars[symbol], nil
}

func TestSignalRefreshStoresBars(t *testing.T) {
	instruments := &memInstrumentStore{instruments: []models.Instrument{
		{Symbol: "AAPL", Active: true},
		{Symbol: "MSFT", Active: true},
	}}
	provider := &stubProvider{bars: map[string][]models.PriceObservation{
		"AAPL": {{Symbol: "AAPL", Close: 184.2}, {Symbol: "AAPL", Close: 185.0}},
		"MSFT": {{Symbol: "MSFT", Close: 410.7}},
	}}
	w := &captureWriter{}
	refresh := NewSignalRefresh(instruments, provider, w, nopMetrics{}, testEngineConfig(t), testLogger(t))

	require.NoError(t, refresh.Run(context.Background(), time.Now()))
	assert.Len(t, w.bars, 3)
}

func TestSignalRefreshSkipsTransientFailure(t *testing.T) {
	instruments := &memInstrumentStore{instruments: []models.Instrument{
		{Symbol: "AAPL", Active: true},
		{Symbol: "NVDA", Active: true},
	}}
	provider := &stubProvider{
		bars: map[string][]models.PriceObservation{
			"AAPL": {{Symbol: "AAPL", Close: 184.2}},
		},
		errs: map[string]error{"NVDA": models.ErrTransient},
	}
	w := &captureWriter{}
	refresh := NewSignalRefresh(instruments, provider, w, nopMetrics{}, testEngineConfig(t), testLogger(t))

	// One provider outage never fails the whole pass.
	require.NoError(t, refresh.Run(context.Background(), time.Now()))
	require.Len(t, w.bars, 1)
	assert.Equal(t, "AAPL", w.bars[0].Symbol)
}

func TestSignalRefreshNoActiveInstruments(t *testing.T) {
	refresh := NewSignalRefresh(&memInstrumentStore{}, &stubProvider{}, &captureWriter{}, nopMetrics{}, testEngineConfig(t), testLogger(t))
	err := refresh.Run(context.Background(), time.Now())
	require.ErrorIs(t, err, models.ErrNoInstruments)
}

func TestSyncInstrumentsRegistersAndDeactivates(t *testing.T) {
	ctx := context.Background()
	store := &memInstrumentStore{instruments: []models.Instrument{
		{Symbol: "AAPL", Name: "Apple Inc.", Active: true},
	}}
	inactive := false
	configured := []config.InstrumentConfig{
		{Symbol: "AAPL", Name: "Apple Inc.", Active: &inactive},
		{Symbol: "JPM", Name: "JPMorgan Chase", Sector: "financials"},
	}

	require.NoError(t, SyncInstruments(ctx, store, configured, testLogger(t)))

	all, err := store.ListInstruments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	active, err := store.ActiveInstruments(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "JPM", active[0].Symbol)

	// Re-running is a no-op, never a duplicate insert.
	require.NoError(t, SyncInstruments(ctx, store, configured, testLogger(t)))
	all, err = store.ListInstruments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
