// Package config loads application configuration and initializes logging.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig tunes the qualification scorer. Thresholds are percentages.
type ScoringConfig struct {
	CatalogPath        string             `yaml:"catalog_path" mapstructure:"catalog_path"`
	ExcellentThreshold int                `yaml:"excellent_threshold" mapstructure:"excellent_threshold"`
	GoodThreshold      int                `yaml:"good_threshold" mapstructure:"good_threshold"`
	FairThreshold      int                `yaml:"fair_threshold" mapstructure:"fair_threshold"`
	AttentionThreshold int                `yaml:"attention_threshold" mapstructure:"attention_threshold"`
	CriticalThreshold  int                `yaml:"critical_threshold" mapstructure:"critical_threshold"`
	MinTextLength      int                `yaml:"min_text_length" mapstructure:"min_text_length"`
	MaxTextLength      int                `yaml:"max_text_length" mapstructure:"max_text_length"`
	Weights            map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// SalesforceConfig holds Salesforce JWT auth settings and the Opportunity
// fields assessments are written to.
type SalesforceConfig struct {
	ClientID  string            `yaml:"client_id" mapstructure:"client_id"`
	Username  string            `yaml:"username" mapstructure:"username"`
	KeyPath   string            `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string            `yaml:"login_url" mapstructure:"login_url"`
	RateLimit float64           `yaml:"rate_limit" mapstructure:"rate_limit"`
	Fields    map[string]string `yaml:"fields" mapstructure:"fields"`
}

// NotionConfig holds the Notion token and the question and field registry
// databases. FieldDB is optional.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	QuestionDB string `yaml:"question_db" mapstructure:"question_db"`
	FieldDB    string `yaml:"field_db" mapstructure:"field_db"`
}

// SyncConfig configures CRM write-back.
type SyncConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MEDDPICC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "meddpicc.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("scoring.excellent_threshold", 80)
	v.SetDefault("scoring.good_threshold", 60)
	v.SetDefault("scoring.fair_threshold", 40)
	v.SetDefault("scoring.attention_threshold", 60)
	v.SetDefault("scoring.critical_threshold", 50)
	v.SetDefault("scoring.min_text_length", 10)
	v.SetDefault("scoring.max_text_length", 2000)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.max_attempts", 3)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Mode is one of
// "store", "salesforce", "notion" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "store":
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			errs = append(errs, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
		if c.Sync.Concurrency < 1 || c.Sync.Concurrency > 20 {
			errs = append(errs, "sync.concurrency must be between 1 and 20")
		}
	case "notion":
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.QuestionDB == "" {
			errs = append(errs, "notion.question_db is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.Port > 65535 {
			errs = append(errs, "server.port must be <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
