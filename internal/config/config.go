package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures all runtime options for the fuzz runner.
type Config struct {
	Seed             int64  `yaml:"seed"`
	Iterations       int    `yaml:"iterations"`
	Workers          int    `yaml:"workers"`
	TestColumnCount  int    `yaml:"test_column_cnt"`
	OtherColumnCount int    `yaml:"other_column_cnt"`
	SelectCount      int    `yaml:"select_cnt"`
	InsertRowsMax    int    `yaml:"insert_rows_max"`
	ValueMaxDepth    int    `yaml:"value_max_depth"`
	SeedDir          string `yaml:"seed_dir"`
	OutputDir        string `yaml:"output_dir"`
	CleanOutput      bool   `yaml:"clean_output"`
	// StatementTimeoutMs bounds one statement; 0 disables it. A statement
	// that times out is recorded as a blacklisted error and never compared.
	StatementTimeoutMs int                     `yaml:"statement_timeout_ms"`
	MaxQPS             int                     `yaml:"max_qps"`
	ValidateSQL        bool                    `yaml:"validate_sql"`
	Weights            OpWeights               `yaml:"weights"`
	Targets            map[string]TargetConfig `yaml:"targets"`
	Logging            Logging                 `yaml:"logging"`
	Storage            StorageConfig           `yaml:"storage"`
}

// OpWeights sets the relative chance of each operator category.
type OpWeights struct {
	Aggregate int `yaml:"aggregate"`
	Function  int `yaml:"function"`
	Predicate int `yaml:"predicate"`
}

// TargetConfig describes how to reach one engine under test.
type TargetConfig struct {
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Params   map[string]string `yaml:"params"`
	// Database is the existing database used for admin sessions; schema
	// isolated targets create their per-iteration schemas inside it.
	Database string `yaml:"database"`
	// DSN is passed verbatim to engines reached through an externally
	// registered database/sql driver.
	DSN string `yaml:"dsn"`
	// Driver overrides the database/sql driver name for those engines.
	Driver       string   `yaml:"driver"`
	ResBlacklist []string `yaml:"res_blacklist"`
}

// Logging controls stdout and file logging behavior.
type Logging struct {
	Verbose               bool   `yaml:"verbose"`
	ReportIntervalSeconds int    `yaml:"report_interval_seconds"`
	LogFile               string `yaml:"log_file"`
	MaxSizeMB             int    `yaml:"max_size_mb"`
	MaxBackups            int    `yaml:"max_backups"`
	MaxAgeDays            int    `yaml:"max_age_days"`
	Compress              bool   `yaml:"compress"`
}

// StorageConfig holds external storage settings.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
	// Compress keeps a zstd copy of every artifact even without uploads.
	Compress bool `yaml:"compress"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads (AWS and S3-compatible endpoints).
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

// Target returns the endpoint settings for a named target.
func (c Config) Target(name string) (TargetConfig, error) {
	tc, ok := c.Targets[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(c.Targets))
		for n := range c.Targets {
			names = append(names, n)
		}
		sort.Strings(names)
		return TargetConfig{}, fmt.Errorf("target %q is not configured (have %s)", name, strings.Join(names, ", "))
	}
	return tc, nil
}

const (
	testColumnCountDefault  = 3
	otherColumnCountDefault = 3
	selectCountDefault      = 10
	insertRowsMaxDefault    = 30
	valueMaxDepthDefault    = 3
)

func normalizeConfig(cfg *Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.TestColumnCount <= 0 {
		cfg.TestColumnCount = testColumnCountDefault
	}
	if cfg.OtherColumnCount < 0 {
		cfg.OtherColumnCount = 0
	}
	if cfg.SelectCount <= 0 {
		cfg.SelectCount = selectCountDefault
	}
	if cfg.InsertRowsMax <= 0 {
		cfg.InsertRowsMax = insertRowsMaxDefault
	}
	if cfg.ValueMaxDepth <= 0 {
		cfg.ValueMaxDepth = valueMaxDepthDefault
	}
	if cfg.Weights.Aggregate < 0 {
		cfg.Weights.Aggregate = 0
	}
	if cfg.Weights.Function < 0 {
		cfg.Weights.Function = 0
	}
	if cfg.Weights.Predicate < 0 {
		cfg.Weights.Predicate = 0
	}
	if cfg.Weights.Aggregate+cfg.Weights.Function+cfg.Weights.Predicate == 0 {
		cfg.Weights = OpWeights{Aggregate: 1, Function: 1, Predicate: 1}
	}
	if len(cfg.Targets) > 0 {
		lowered := make(map[string]TargetConfig, len(cfg.Targets))
		for name, tc := range cfg.Targets {
			lowered[strings.ToLower(strings.TrimSpace(name))] = tc
		}
		cfg.Targets = lowered
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 50
	}
}

func defaultConfig() Config {
	return Config{
		Workers:          1,
		TestColumnCount:  testColumnCountDefault,
		OtherColumnCount: otherColumnCountDefault,
		SelectCount:      selectCountDefault,
		InsertRowsMax:    insertRowsMaxDefault,
		ValueMaxDepth:    valueMaxDepthDefault,
		SeedDir:          "seed",
		OutputDir:        "res",
		CleanOutput:      true,
		ValidateSQL:      true,
		Weights:          OpWeights{Aggregate: 1, Function: 1, Predicate: 1},
		Logging: Logging{
			ReportIntervalSeconds: 30,
			LogFile:               "logs/derivefuzz.log",
			MaxSizeMB:             50,
			MaxBackups:            5,
			Compress:              true,
		},
	}
}
