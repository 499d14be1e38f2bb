package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: test
instruments:
  - symbol: AAPL
    name: Apple Inc.
    sector: technology
  - symbol: XOM
    name: Exxon Mobil
    sector: energy
    active: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "signalengine", c.ClickHouse.Database)
	assert.Equal(t, "signalengine.predictions", c.Kafka.Topic)
	assert.Equal(t, 30*time.Second, c.Cache.TTL.Predictions)

	e := c.Engine
	assert.Equal(t, 8, e.Workers)
	assert.Equal(t, 30, e.Correlation.LookbackDays)
	assert.InDelta(t, 0.7, e.Correlation.PriceWeight, 1e-12)
	assert.InDelta(t, 0.3, e.Correlation.SentimentWeight, 1e-12)
	assert.InDelta(t, 0.6, e.Correlation.SignifThreshold, 1e-12)
	assert.Equal(t, 20, e.Correlation.MinSamples)
	assert.Equal(t, 10, e.Momentum.TrendDays)
	assert.InDelta(t, 0.8, e.Contrarian.ExtremeThreshold, 1e-12)
	assert.Equal(t, 2, e.NewsImpact.RecentDays)
	assert.Equal(t, 5, e.Selector.MinInstrumentSamples)
	assert.InDelta(t, 0.5, e.Selector.NeutralWeight, 1e-12)
	assert.Equal(t, 5, e.Evaluation.HorizonDays)
	assert.InDelta(t, 0.001, e.Evaluation.NoiseThreshold, 1e-12)
	assert.Equal(t, 12, e.Evaluation.RollingWindow)
	assert.Equal(t, 30, e.SignalWindowDays)
}

func TestLoadOverridesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML+`
engine:
  workers: 2
  evaluation:
    horizon_days: 10
server:
  port: 9999
`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Engine.Workers)
	assert.Equal(t, 10, c.Engine.Evaluation.HorizonDays)
	assert.Equal(t, 9999, c.Server.Port)
	// untouched knobs keep their defaults
	assert.Equal(t, 12, c.Engine.Evaluation.RollingWindow)
}

func TestLoadRejectsMissingEnvironment(t *testing.T) {
	_, err := Load(writeConfig(t, `
instruments:
  - symbol: AAPL
    name: Apple Inc.
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestLoadRejectsEmptyInstruments(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruments")
}

func TestLoadRejectsUnnamedInstrument(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
instruments:
  - symbol: AAPL
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol and name")
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
kafka:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestLoadRejectsBadEngineKnobs(t *testing.T) {
	cases := map[string]string{
		"significance out of range": `
engine:
  correlation:
    significance_threshold: 1.5
`,
		"horizon non-positive":      `
engine:
  evaluation:
    horizon_days: -1
`,
	}
	for name, extra := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, minimalYAML+extra))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MARKET_DATA_API_KEY", "secret-key")
	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", c.MarketData.APIKey)
	assert.Equal(t, "ch.internal", c.ClickHouse.Host)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, c.Kafka.Brokers)
}

func TestActiveInstruments(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	active := c.ActiveInstruments()
	require.Len(t, active, 1)
	assert.Equal(t, "AAPL", active[0].Symbol)
}
