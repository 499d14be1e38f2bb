package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Instruments []InstrumentConfig `yaml:"instruments"`
	Engine      EngineConfig       `yaml:"engine"`
	MarketData  struct {
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
		MaxRPS     float64       `yaml:"max_rps" default:"5"`
		BurstSize  float64       `yaml:"burst_size" default:"10"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
	} `yaml:"market_data"`
	Sentiment struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"sentiment"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"signalengine.predictions"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Topic      string        `yaml:"topic" default:"signalengine.sentiment.scored"`
			GroupID    string        `yaml:"group_id" default:"signalengine"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signalengine"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		TTL struct {
			Predictions time.Duration `yaml:"predictions" default:"30s"`
			Performance time.Duration `yaml:"performance" default:"60s"`
			Accuracy    time.Duration `yaml:"accuracy" default:"60s"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
}

// InstrumentConfig declares one tracked instrument.
type InstrumentConfig struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
	Active *bool  `yaml:"active"`
}

// EngineConfig carries the numeric knobs of the prediction engine. All
// values are configurable defaults, not contractual constants.
type EngineConfig struct {
	Workers int `yaml:"workers" default:"8"`

	Correlation struct {
		LookbackDays    int     `yaml:"lookback_days" default:"30"`
		PriceWeight     float64 `yaml:"price_weight" default:"0.7"`
		SentimentWeight float64 `yaml:"sentiment_weight" default:"0.3"`
		SignifThreshold float64 `yaml:"significance_threshold" default:"0.6"`
		MinSamples      int     `yaml:"min_samples" default:"20"`
	} `yaml:"correlation"`

	Momentum struct {
		TrendDays int `yaml:"trend_days" default:"10"`
	} `yaml:"momentum"`

	Contrarian struct {
		ExtremeThreshold float64 `yaml:"extreme_threshold" default:"0.8"`
		FlatTrendMax     float64 `yaml:"flat_trend_max" default:"0.02"`
	} `yaml:"contrarian"`

	NewsImpact struct {
		RecentDays    int     `yaml:"recent_days" default:"2"`
		DecayHalfLife float64 `yaml:"decay_half_life_days" default:"1"`
	} `yaml:"news_impact"`

	Selector struct {
		MinInstrumentSamples int     `yaml:"min_instrument_samples" default:"5"`
		NeutralWeight        float64 `yaml:"neutral_weight" default:"0.5"`
	} `yaml:"selector"`

	Evaluation struct {
		HorizonDays    int     `yaml:"horizon_days" default:"5"`
		NoiseThreshold float64 `yaml:"noise_threshold" default:"0.001"`
		RollingWindow  int     `yaml:"rolling_window" default:"12"`
	} `yaml:"evaluation"`

	SignalWindowDays int `yaml:"signal_window_days" default:"30"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Fill unset fields with defaults before validating
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MARKET_DATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("MARKET_DATA_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		c.Sentiment.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments cannot be empty")
	}
	for _, inst := range c.Instruments {
		if inst.Symbol == "" || inst.Name == "" {
			return fmt.Errorf("instrument symbol and name are required")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	e := &c.Engine
	if e.Correlation.PriceWeight+e.Correlation.SentimentWeight <= 0 {
		return fmt.Errorf("correlation weights must sum to a positive value")
	}
	if e.Correlation.SignifThreshold < 0 || e.Correlation.SignifThreshold > 1 {
		return fmt.Errorf("correlation.significance_threshold must be in [0,1]")
	}
	if e.Contrarian.ExtremeThreshold <= 0 || e.Contrarian.ExtremeThreshold > 1 {
		return fmt.Errorf("contrarian.extreme_threshold must be in (0,1]")
	}
	if e.Evaluation.HorizonDays <= 0 {
		return fmt.Errorf("evaluation.horizon_days must be positive")
	}
	if e.Evaluation.RollingWindow <= 0 {
		return fmt.Errorf("evaluation.rolling_window must be positive")
	}
	return nil
}

// ActiveInstruments returns configured instruments that are not explicitly
// deactivated.
func (c *Config) ActiveInstruments() []InstrumentConfig {
	out := make([]InstrumentConfig, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Active == nil || *inst.Active {
			out = append(out, inst)
		}
	}
	return out
}
