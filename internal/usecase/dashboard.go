package usecase

import (
	"context"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/cache"
	"SignalEngine/pkg/config"
	xhttp "SignalEngine/pkg/http"
	applogger "SignalEngine/pkg/logger"
	"SignalEngine/pkg/util"
)

// Dashboard serves the read endpoints of the engine. Hot lists go through a
// short-TTL read-through cache; a nil cache service means direct reads.
type Dashboard struct {
	predictions  domrepo.PredictionStore
	results      domrepo.ResultStore
	perf         domrepo.PerformanceStore
	correlations domrepo.CorrelationStore
	instruments  domrepo.InstrumentStore
	cache        cache.Service
	ttl          config.Config
	l            *applogger.Logger
}

func NewDashboard(
	predictions domrepo.PredictionStore,
	results domrepo.ResultStore,
	perf domrepo.PerformanceStore,
	correlations domrepo.CorrelationStore,
	instruments domrepo.InstrumentStore,
	cacheSvc cache.Service,
	cfg *config.Config,
	l *applogger.Logger,
) *Dashboard {
	return &Dashboard{
		predictions:  predictions,
		results:      results,
		perf:         perf,
		correlations: correlations,
		instruments:  instruments,
		cache:        cacheSvc,
		ttl:          *cfg,
		l:            l,
	}
}

func (d *Dashboard) Predictions(ctx context.Context, req *models.PredictionsRequest) ([]models.Prediction, error) {
	var targetDate *time.Time
	if req.TargetDate != "" {
		t, ok := util.ParseTime(req.TargetDate)
		if !ok {
			return nil, xhttp.BadRequestErrorf("invalid target_date %q", req.TargetDate)
		}
		t = util.TruncateDay(t)
		targetDate = &t
	}

	key := cache.GenerateKeyWithParams("predictions", req.Symbol, req.TargetDate, req.Limit)
	var cached []models.Prediction
	if d.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	out, err := d.predictions.ListPredictions(ctx, req.Symbol, targetDate, req.Limit)
	if err != nil {
		return nil, err
	}
	d.cacheSet(ctx, key, out, d.ttl.Cache.TTL.Predictions)
	return out, nil
}

func (d *Dashboard) Results(ctx context.Context, req *models.ResultsRequest) ([]models.Result, error) {
	return d.results.ListResults(ctx, req.Symbol, req.Strategy, req.Limit)
}

func (d *Dashboard) Performance(ctx context.Context, req *models.PerformanceRequest) ([]models.StrategyPerformance, error) {
	key := cache.GenerateKeyWithParams("performance", req.Strategy, req.Scope)
	var cached []models.StrategyPerformance
	if d.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	out, err := d.perf.ListPerformance(ctx, req.Strategy, req.Scope)
	if err != nil {
		return nil, err
	}
	d.cacheSet(ctx, key, out, d.ttl.Cache.TTL.Performance)
	return out, nil
}

func (d *Dashboard) Correlations(ctx context.Context, req *models.CorrelationsRequest) ([]models.Correlation, error) {
	return d.correlations.ListCorrelations(ctx, req.Symbol, req.SignificantOnly, req.Limit)
}

func (d *Dashboard) Accuracy(ctx context.Context) (models.AccuracySummary, error) {
	key := cache.GenerateKey("accuracy", "summary")
	var cached models.AccuracySummary
	if d.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	sum, err := d.results.Accuracy(ctx)
	if err != nil {
		return models.AccuracySummary{}, err
	}
	d.cacheSet(ctx, key, sum, d.ttl.Cache.TTL.Accuracy)
	return sum, nil
}

func (d *Dashboard) Instruments(ctx context.Context) ([]models.Instrument, error) {
	return d.instruments.ListInstruments(ctx)
}

// AddInstrument registers a new tracked instrument, active immediately.
func (d *Dashboard) AddInstrument(ctx context.Context, req *models.AddInstrumentRequest) (models.Instrument, error) {
	inst := models.Instrument{
		Symbol:    req.Symbol,
		Name:      req.Name,
		Sector:    req.Sector,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.instruments.AddInstrument(ctx, inst); err != nil {
		return models.Instrument{}, err
	}
	return inst, nil
}

func (d *Dashboard) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if d.cache == nil {
		return false
	}
	err := d.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if err != cache.ErrCacheMiss && d.l != nil {
		d.l.Warn("cache read failed", applogger.String("key", key), applogger.Error(err))
	}
	return false
}

func (d *Dashboard) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if d.cache == nil || ttl <= 0 {
		return
	}
	if err := d.cache.Set(ctx, key, value, ttl); err != nil && d.l != nil {
		d.l.Warn("cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}
