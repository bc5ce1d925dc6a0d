package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Primary   PrimaryConfig   `koanf:"primary"`
	Alternate AlternateConfig `koanf:"alternate"`
	Checkout  CheckoutConfig  `koanf:"checkout"`
	Logger    LoggerConfig    `koanf:"logger"`
	Worker    WorkerConfig    `koanf:"worker"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// PrimaryConfig holds the default VPOS credentials (EST 3D hosted page).
// All transactions fall back here; recurring payments never leave it.
type PrimaryConfig struct {
	ClientID    string `koanf:"client_id" validate:"required"`
	StoreKey    string `koanf:"store_key" validate:"required"`
	APIUser     string `koanf:"api_user" validate:"required"`
	APIPassword string `koanf:"api_password" validate:"required"`

	APIURL      string `koanf:"api_url" validate:"required"`
	TDSURL      string `koanf:"tds_url" validate:"required"`
	OkURL       string `koanf:"ok_url" validate:"required"`
	FailURL     string `koanf:"fail_url" validate:"required"`
	CallbackURL string `koanf:"callback_url" validate:"required"`

	Language               string        `koanf:"language"`
	RecurringPaymentNumber int           `koanf:"recurring_payment_number"`
	ConnTimeout            time.Duration `koanf:"conn_timeout" validate:"required"`
	TestMode               bool          `koanf:"test_mode"`
}

// AlternateConfig holds the alternate VPOS credentials (PosNet-style API)
// used for one-off payments on eligible BINs.
type AlternateConfig struct {
	MerchantNo string `koanf:"merchant_no" validate:"required"`
	TerminalNo string `koanf:"terminal_no" validate:"required"`
	EposNo     string `koanf:"epos_no" validate:"required"`
	EncKey     string `koanf:"enc_key" validate:"required"`

	APIURL      string `koanf:"api_url" validate:"required"`
	TDSURL      string `koanf:"tds_url" validate:"required"`
	CallbackURL string `koanf:"callback_url" validate:"required"`
	SuccessURL  string `koanf:"success_url" validate:"required"`
	FailURL     string `koanf:"fail_url" validate:"required"`

	ConnTimeout time.Duration `koanf:"conn_timeout" validate:"required"`
	TestMode    bool          `koanf:"test_mode"`
}

type CheckoutConfig struct {
	Currency        string        `koanf:"currency" validate:"required"`
	DuplicateWindow time.Duration `koanf:"duplicate_window" validate:"required"`
	SessionTimeout  time.Duration `koanf:"session_timeout" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

// LoadConfig reads GATEWAY_* environment variables into the config tree and
// validates it. A missing gateway credential fails here, before any request
// is served.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Primary.Language == "" {
		mainConfig.Primary.Language = "tr"
	}

	return mainConfig, nil
}

// NewLogger builds the process logger at the configured level.
func (c *LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
