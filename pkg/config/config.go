package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8000"`
		Debug           bool          `yaml:"debug"`
		CORS            bool          `yaml:"cors" default:"true"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
	} `yaml:"server"`
	Log struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"both"`
		Dir       string `yaml:"dir" default:"logs"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"stockprob.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Tushare struct {
		Token   string        `yaml:"token"`
		URL     string        `yaml:"url" default:"http://api.tushare.pro"`
		Timeout time.Duration `yaml:"timeout" default:"30s"`
		// RPS caps calls per second across every API; 0 disables the cap and
		// leaves pacing to the per-endpoint limits.
		RPS   float64 `yaml:"rps" default:"0"`
		Burst int     `yaml:"burst" default:"8"`
	} `yaml:"tushare"`
	Limits struct {
		MinutesPerMinute int `yaml:"minutes_per_minute" default:"500"`
		AuctionPerMinute int `yaml:"auction_per_minute" default:"500"`
	} `yaml:"limits"`
	Engine struct {
		FloorDate    string        `yaml:"floor_date" default:"20150101"`
		Periods      []string      `yaml:"periods" default:"[\"y2\"]"`
		ReuseToday   bool          `yaml:"reuse_today" default:"true"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		Workers      int           `yaml:"workers" default:"10"`
		BatchPause   time.Duration `yaml:"batch_pause" default:"1s"`
		FetchTimeout time.Duration `yaml:"fetch_timeout" default:"30s"`
	} `yaml:"engine"`
	Universe struct {
		AsOfDate        string   `yaml:"as_of_date"`
		ExcludeSuffixes []string `yaml:"exclude_suffixes" default:"[\".BJ\"]"`
		ExcludePrefixes []string `yaml:"exclude_prefixes" default:"[\"688\"]"`
		RiskMarker      string   `yaml:"risk_marker" default:"ST"`
		ValuationBatch  int      `yaml:"valuation_batch" default:"1000"`
		MinTotalMV      float64  `yaml:"min_total_mv" default:"300000"`
		MaxTotalMV      float64  `yaml:"max_total_mv" default:"2220000"`
		MinFloatRatio   float64  `yaml:"min_float_ratio" default:"0.7"`
		Blacklist       []string `yaml:"blacklist" default:"[\"600811.SH\"]"`
		MaxLagDays      int      `yaml:"max_lag_days" default:"5"`
	} `yaml:"universe"`
	Storage struct {
		DataDir    string `yaml:"data_dir" default:"./data"`
		ExportPath string `yaml:"export_path" default:"./data/export/probabilities.parquet"`
	} `yaml:"storage"`
	Cache struct {
		Enabled       bool          `yaml:"enabled"`
		Backend       string        `yaml:"backend" default:"memory"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"10m"`
		Redis         struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"stockprob"`
		} `yaml:"redis"`
		TTL struct {
			Roster    time.Duration `yaml:"roster" default:"12h"`
			Basic     time.Duration `yaml:"basic" default:"12h"`
			DailyBars time.Duration `yaml:"daily_bars" default:"1h"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"stockprob.analysis.completed"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"probability_records"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML configuration file over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("TUSHARE_TOKEN"); ok {
		c.Tushare.Token = v
	}
	if v, ok := get("DATA_DIR"); ok {
		c.Storage.DataDir = v
	}
	if v, ok := get("LOG_DIR"); ok {
		c.Log.Dir = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("API_HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := get("API_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := get("API_DEBUG"); ok {
		c.Server.Debug = strings.EqualFold(v, "true")
	}
	if v, ok := get("REDIS_ADDR"); ok {
		host, port, found := strings.Cut(v, ":")
		c.Cache.Enabled = true
		c.Cache.Backend = "redis"
		c.Cache.Redis.Host = host
		if found {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := get("CLICKHOUSE_HOST"); ok {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if len(c.Engine.Periods) == 0 {
		return fmt.Errorf("engine.periods cannot be empty")
	}
	if c.Engine.Workers < 0 || c.Engine.BatchSize < 0 {
		return fmt.Errorf("engine.workers and engine.batch_size must not be negative")
	}
	if c.Universe.MinTotalMV > c.Universe.MaxTotalMV {
		return fmt.Errorf("universe.min_total_mv (%v) exceeds max_total_mv (%v)", c.Universe.MinTotalMV, c.Universe.MaxTotalMV)
	}
	if c.Cache.Enabled && c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
