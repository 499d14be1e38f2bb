package correlation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/internal/services/features"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
)

// Engine computes pairwise co-movement between instruments' price and
// sentiment series. Each run produces a full replacement snapshot as of
// "now"; historical rows are never mutated.
type Engine struct {
	store domrepo.SignalStore
	cfg   config.EngineConfig
	l     *applogger.Logger
}

func NewEngine(store domrepo.SignalStore, cfg config.EngineConfig, l *applogger.Logger) *Engine {
	return &Engine{store: store, cfg: cfg, l: l}
}

// series is one instrument's aligned daily inputs over the lookback window.
type series struct {
	symbol       string
	returnsByDay map[time.Time]float64
	sentByDay    map[time.Time]float64
}

// Compute builds the correlation snapshot for the instrument set. Pairs
// with fewer observations than the lookback requires are recorded with
// sample size 0 and significance false, not dropped as errors. With no
// usable history at all it returns an empty set.
func (e *Engine) Compute(ctx context.Context, instruments []models.Instrument, asOf time.Time) ([]models.Correlation, error) {
	lookback := e.cfg.Correlation.LookbackDays
	from := asOf.AddDate(0, 0, -lookback)

	loaded := make([]series, 0, len(instruments))
	for _, inst := range instruments {
		s, err := e.loadSeries(ctx, inst.Symbol, from, asOf)
		if err != nil {
			return nil, fmt.Errorf("load series %s: %w", inst.Symbol, err)
		}
		loaded = append(loaded, s)
	}

	out := make([]models.Correlation, 0, len(loaded)*(len(loaded)-1)/2)
	usable := 0
	for i := 0; i < len(loaded); i++ {
		for j := i + 1; j < len(loaded); j++ {
			row := e.computePair(loaded[i], loaded[j], asOf)
			if row.SampleSize > 0 {
				usable++
			}
			out = append(out, row)
		}
	}

	if usable == 0 {
		// Insufficient global history: empty snapshot, not an error.
		if e.l != nil {
			e.l.Warn("correlation snapshot empty",
				applogger.Int("instruments", len(instruments)),
				applogger.Int("lookback_days", lookback),
			)
		}
		return []models.Correlation{}, nil
	}
	return out, nil
}

func (e *Engine) loadSeries(ctx context.Context, symbol string, from, to time.Time) (series, error) {
	w, err := e.store.GetSignalWindow(ctx, symbol, from, to)
	if err != nil {
		return series{}, err
	}

	s := series{
		symbol:       symbol,
		returnsByDay: make(map[time.Time]float64, len(w.Prices)),
		sentByDay:    make(map[time.Time]float64, 8),
	}
	for i := 1; i < len(w.Prices); i++ {
		prev := w.Prices[i-1].Close
		cur := w.Prices[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		day := w.Prices[i].Date.UTC().Truncate(24 * time.Hour)
		s.returnsByDay[day] = math.Log(cur / prev)
	}

	type agg struct {
		sum float64
		n   int
	}
	byDay := make(map[time.Time]*agg)
	for _, r := range w.Sentiment {
		day := r.Timestamp.UTC().Truncate(24 * time.Hour)
		a, ok := byDay[day]
		if !ok {
			a = &agg{}
			byDay[day] = a
		}
		a.sum += r.Score
		a.n++
	}
	for day, a := range byDay {
		s.sentByDay[day] = a.sum / float64(a.n)
	}
	return s, nil
}

// computePair blends the price co-movement coefficient with the sentiment
// one. Price is weighted higher so agreeing signals are not double-counted.
// Sample size is the count of overlapping daily return observations.
func (e *Engine) computePair(a, b series, asOf time.Time) models.Correlation {
	row := models.Correlation{
		SymbolA:    a.symbol,
		SymbolB:    b.symbol,
		ComputedAt: asOf,
	}

	retA, retB := alignDays(a.returnsByDay, b.returnsByDay)
	if len(retA) < e.cfg.Correlation.LookbackDays/2 {
		// Too little overlap; skip the pair but keep the audit row.
		return row
	}
	priceCoef, ok := features.Pearson(retA, retB)
	if !ok {
		return row
	}

	pw := e.cfg.Correlation.PriceWeight
	sw := e.cfg.Correlation.SentimentWeight
	coef := priceCoef
	if sentA, sentB := alignDays(a.sentByDay, b.sentByDay); len(sentA) >= 2 {
		if sentCoef, ok := features.Pearson(sentA, sentB); ok {
			coef = (pw*priceCoef + sw*sentCoef) / (pw + sw)
		}
	}

	row.Coefficient = coef
	row.SampleSize = len(retA)
	row.Significant = math.Abs(coef) >= e.cfg.Correlation.SignifThreshold &&
		row.SampleSize >= e.cfg.Correlation.MinSamples
	return row
}

// alignDays intersects two per-day maps and returns paired values ordered
// by day.
func alignDays(a, b map[time.Time]float64) ([]float64, []float64) {
	days := make([]time.Time, 0, len(a))
	for d := range a {
		if _, ok := b[d]; ok {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	xs := make([]float64, 0, len(days))
	ys := make([]float64, 0, len(days))
	for _, d := range days {
		xs = append(xs, a[d])
		ys = append(ys, b[d])
	}
	return xs, ys
}
