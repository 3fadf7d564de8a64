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
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Risk       RiskConfig       `yaml:"risk" mapstructure:"risk"`
	Summary    SummaryConfig    `yaml:"summary" mapstructure:"summary"`
	Ensemble   EnsembleConfig   `yaml:"ensemble" mapstructure:"ensemble"`
	Worker     WorkerConfig     `yaml:"worker" mapstructure:"worker"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the narrative summary and
// the ensemble extraction path.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// ValidationConfig holds the cross-validator's tunable thresholds. Defaults
// follow Luxembourg statutory screening practice but are jurisdiction
// overridable through config.
type ValidationConfig struct {
	// MaxLoanToAssetsMultiple: an IC loan exceeding this multiple of total
	// assets is treated as an extraction fault, not a real balance.
	MaxLoanToAssetsMultiple float64 `yaml:"max_loan_to_assets_multiple" mapstructure:"max_loan_to_assets_multiple"`
	// MinPlausibleRate / MaxPlausibleRate bound the implied annual interest
	// rate (interest / principal) considered believable.
	MinPlausibleRate float64 `yaml:"min_plausible_rate" mapstructure:"min_plausible_rate"`
	MaxPlausibleRate float64 `yaml:"max_plausible_rate" mapstructure:"max_plausible_rate"`
	// MediumSourcedThreshold: minimum sourced percentage for MEDIUM overall
	// confidence when HIGH is ruled out.
	MediumSourcedThreshold float64 `yaml:"medium_sourced_threshold" mapstructure:"medium_sourced_threshold"`
}

// RiskConfig holds the risk scorer's weights and policy thresholds.
// Weights sum to 1.0; tier cut-offs are policy, not derived.
type RiskConfig struct {
	FinancingWeight     float64 `yaml:"financing_weight" mapstructure:"financing_weight"`
	ServicesWeight      float64 `yaml:"services_weight" mapstructure:"services_weight"`
	DocumentationWeight float64 `yaml:"documentation_weight" mapstructure:"documentation_weight"`
	MaterialityWeight   float64 `yaml:"materiality_weight" mapstructure:"materiality_weight"`
	ComplexityWeight    float64 `yaml:"complexity_weight" mapstructure:"complexity_weight"`

	ThinCapRatio        float64 `yaml:"thin_cap_ratio" mapstructure:"thin_cap_ratio"`
	ICDebtConcentration float64 `yaml:"ic_debt_concentration" mapstructure:"ic_debt_concentration"`
	LoanVolumeThreshold float64 `yaml:"loan_volume_threshold" mapstructure:"loan_volume_threshold"`
	LocalFileThreshold  float64 `yaml:"local_file_threshold" mapstructure:"local_file_threshold"`
	MasterFileThreshold float64 `yaml:"master_file_threshold" mapstructure:"master_file_threshold"`

	TierAThreshold int `yaml:"tier_a_threshold" mapstructure:"tier_a_threshold"`
	TierBThreshold int `yaml:"tier_b_threshold" mapstructure:"tier_b_threshold"`
}

// SummaryConfig configures the narrative-summary collaborator.
type SummaryConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMins  int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	RatePerMinute float64 `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// EnsembleConfig configures the LLM peer-extraction path.
type EnsembleConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// WorkerConfig configures the analysis job worker.
type WorkerConfig struct {
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig tunes the queue health monitor. Alerts go out only
// when WebhookURL is set.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	QueueDepthThreshold  int     `yaml:"queue_depth_threshold" mapstructure:"queue_depth_threshold"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TPSCREEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "tp-screener.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("validation.max_loan_to_assets_multiple", 2.0)
	v.SetDefault("validation.min_plausible_rate", 0.0)
	v.SetDefault("validation.max_plausible_rate", 0.10)
	v.SetDefault("validation.medium_sourced_threshold", 0.5)
	v.SetDefault("risk.financing_weight", 0.35)
	v.SetDefault("risk.services_weight", 0.25)
	v.SetDefault("risk.documentation_weight", 0.20)
	v.SetDefault("risk.materiality_weight", 0.10)
	v.SetDefault("risk.complexity_weight", 0.10)
	v.SetDefault("risk.thin_cap_ratio", 3.0)
	v.SetDefault("risk.ic_debt_concentration", 0.70)
	v.SetDefault("risk.loan_volume_threshold", 50_000_000)
	v.SetDefault("risk.local_file_threshold", 60_000_000)
	v.SetDefault("risk.master_file_threshold", 100_000_000)
	v.SetDefault("risk.tier_a_threshold", 70)
	v.SetDefault("risk.tier_b_threshold", 40)
	v.SetDefault("summary.enabled", true)
	v.SetDefault("summary.timeout_secs", 30)
	v.SetDefault("summary.cache_ttl_mins", 60)
	v.SetDefault("summary.rate_per_minute", 30)
	v.SetDefault("ensemble.enabled", false)
	v.SetDefault("ensemble.timeout_secs", 60)
	v.SetDefault("worker.poll_interval_secs", 3)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.queue_depth_threshold", 500)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

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

// Validate checks that the configuration is usable for the given mode.
// Modes: "analyze", "worker", "serve", "score".
func (c *Config) Validate(mode string) error {
	var problems []string

	weightSum := c.Risk.FinancingWeight + c.Risk.ServicesWeight +
		c.Risk.DocumentationWeight + c.Risk.MaterialityWeight + c.Risk.ComplexityWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		problems = append(problems, fmt.Sprintf("risk weights must sum to 1.0, got %.3f", weightSum))
	}
	if c.Risk.TierAThreshold <= c.Risk.TierBThreshold {
		problems = append(problems, "risk.tier_a_threshold must be above risk.tier_b_threshold")
	}
	if c.Risk.TierBThreshold <= 0 {
		problems = append(problems, "risk.tier_b_threshold must be > 0")
	}
	if c.Validation.MinPlausibleRate < 0 || c.Validation.MaxPlausibleRate <= c.Validation.MinPlausibleRate {
		problems = append(problems, "validation rate band must satisfy 0 <= min < max")
	}
	if c.Validation.MediumSourcedThreshold < 0 || c.Validation.MediumSourcedThreshold > 1 {
		problems = append(problems, "validation.medium_sourced_threshold must be between 0 and 1")
	}

	switch mode {
	case "analyze":
		if c.OCR.Provider == "mistral" && c.OCR.MistralKey == "" {
			problems = append(problems, "ocr.mistral_api_key is required when ocr.provider is mistral")
		}
	case "worker":
		if c.Worker.Concurrency < 1 || c.Worker.Concurrency > 32 {
			problems = append(problems, "worker.concurrency must be between 1 and 32")
		}
		if c.Worker.PollIntervalSecs <= 0 {
			problems = append(problems, "worker.poll_interval_secs must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "score":
		// Covered by the common checks.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
