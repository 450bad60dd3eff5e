package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Timezone     string `yaml:"timezone" default:"Asia/Shanghai" validate:"required"`
	UniverseFile string `yaml:"universe_file" default:"configs/watchlist.csv"`
	ResultsDir   string `yaml:"results_dir" default:"results" validate:"required"`
	Proxy        string `yaml:"proxy"`

	Schedule struct {
		PreOpen              string `yaml:"pre_open" default:"09:05" validate:"datetime=15:04"`
		PostClose            string `yaml:"post_close" default:"15:10" validate:"datetime=15:04"`
		IntradayEveryMinutes int    `yaml:"intraday_every_minutes" default:"30" validate:"gte=0,lte=120"`
	} `yaml:"schedule"`

	Risk struct {
		MaxDrawdownLimit float64 `yaml:"max_drawdown_limit" default:"0.15" validate:"gt=0,lte=1"`
		RiskPerTrade     float64 `yaml:"risk_per_trade" default:"0.01" validate:"gt=0,lte=1"`
		ATRStopMultiple  float64 `yaml:"atr_stop_multiple" default:"1.5" validate:"gt=0"`
	} `yaml:"risk"`

	Signal struct {
		TechnicalWeight float64 `yaml:"technical_weight" default:"0.7" validate:"gte=0"`
		NewsWeight      float64 `yaml:"news_weight" default:"0.3" validate:"gte=0"`
		BuyThreshold    float64 `yaml:"buy_threshold" default:"4.0"`
		ReduceThreshold float64 `yaml:"reduce_threshold" default:"1.0" validate:"ltfield=BuyThreshold"`
	} `yaml:"signal"`

	Integrations struct {
		SerperAPIKeyEnv  string `yaml:"serper_api_key_env" default:"SERPER_API_KEY"`
		WecomWebhookEnv  string `yaml:"wecom_webhook_env" default:"WECOM_WEBHOOK_URL"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   string `yaml:"telegram_chat_id"`
	} `yaml:"integrations"`

	Market struct {
		Source  string `yaml:"source" default:"eastmoney" validate:"oneof=eastmoney mock"`
		BaseURL string `yaml:"base_url"`
		Adjust  string `yaml:"adjust" default:"qfq" validate:"oneof=qfq hfq none"`
	} `yaml:"market"`

	Storage struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/agent_search.db"`
		StateFile  string `yaml:"state_file" default:"data/risk_state.json"`
	} `yaml:"storage"`

	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		TTL           time.Duration `yaml:"ttl" default:"30m" validate:"gte=0"`
	} `yaml:"cache"`

	HTTP struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`

	Tracing struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`

	Account struct {
		Equity float64 `yaml:"equity" default:"1000000" validate:"gt=0"`
	} `yaml:"account"`

	Lookback struct {
		BarsDays         int `yaml:"bars_days" default:"120" validate:"gt=0"`
		NewsHours        int `yaml:"news_hours" default:"48" validate:"gt=0"`
		AnnouncementDays int `yaml:"announcement_days" default:"7" validate:"gt=0"`
	} `yaml:"lookback"`
}

var validate = validator.New()

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load applies defaults, then the YAML file at path (a missing file is not
// an error), then environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TIMEZONE":           &c.Timezone,
		"UNIVERSE_FILE":      &c.UniverseFile,
		"RESULTS_DIR":        &c.ResultsDir,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Storage.SQLitePath,
		"RISK_STATE_FILE":    &c.Storage.StateFile,
		"REDIS_ADDR":         &c.Cache.RedisAddr,
		"REDIS_PASSWORD":     &c.Cache.RedisPassword,
		"HTTP_ADDR":          &c.HTTP.Addr,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FORMAT":         &c.Log.Format,
		"TELEGRAM_BOT_TOKEN": &c.Integrations.TelegramBotToken,
		"TELEGRAM_CHAT_ID":   &c.Integrations.TelegramChatID,
		"MARKET_SOURCE":      &c.Market.Source,
	}
	for env, dst := range strs {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ACCOUNT_EQUITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ACCOUNT_EQUITY: %w", err)
		}
		c.Account.Equity = f
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = b
	}
	return nil
}

// Validate checks field constraints and that the timezone is loadable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "ltfield":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be HH:MM", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SerperAPIKey reads the key from the configured environment variable.
func (c *Config) SerperAPIKey() string {
	return os.Getenv(c.Integrations.SerperAPIKeyEnv)
}

// WecomWebhook reads the webhook URL from the configured environment variable.
func (c *Config) WecomWebhook() string {
	return os.Getenv(c.Integrations.WecomWebhookEnv)
}
