package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Image    ImageConfig    `mapstructure:"image"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	AdminUserID    int64         `mapstructure:"admin_user_id"`
	VIPChatID      int64         `mapstructure:"vip_chat_id"`
	PollingTimeout int           `mapstructure:"polling_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type OCRConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	WebSocketURL  string        `mapstructure:"websocket_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Language      string        `mapstructure:"language"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type PaymentConfig struct {
	// Amount is the required payment in naira. Mutable at runtime via
	// /setprice; this value seeds the store on first run.
	Amount          int64         `mapstructure:"amount"`
	AccountNumber   string        `mapstructure:"account_number"`
	ReceiverName    string        `mapstructure:"receiver_name"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	AllowResubmit   bool          `mapstructure:"allow_resubmit"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	InviteTTL       time.Duration `mapstructure:"invite_ttl"`
	ApprovalRetries int           `mapstructure:"approval_retries"`
	ApprovalBackoff time.Duration `mapstructure:"approval_backoff"`
}

type ImageConfig struct {
	ContrastFactor float64 `mapstructure:"contrast_factor"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSONFormat bool   `mapstructure:"json_format"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("telegram.polling_timeout", 60)
	v.SetDefault("telegram.request_timeout", "3m")
	v.SetDefault("ocr.base_url", "http://localhost:8884")
	v.SetDefault("ocr.websocket_url", "ws://localhost:8884/ws")
	v.SetDefault("ocr.timeout", "2m")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.max_concurrent", 4)
	v.SetDefault("payment.amount", 2000)
	v.SetDefault("payment.request_timeout", "20m")
	v.SetDefault("payment.sweep_interval", "1m")
	v.SetDefault("payment.allow_resubmit", true)
	v.SetDefault("payment.token_ttl", "1h")
	v.SetDefault("payment.invite_ttl", "10m")
	v.SetDefault("payment.approval_retries", 3)
	v.SetDefault("payment.approval_backoff", "2s")
	v.SetDefault("image.contrast_factor", 2.0)
	v.SetDefault("storage.database_path", "data/payments.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", false)

	// Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/vip-pay-bot")

	// Environment variables
	v.SetEnvPrefix("VIP_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.AdminUserID == 0 {
		return fmt.Errorf("telegram.admin_user_id is required")
	}
	if c.Telegram.VIPChatID == 0 {
		return fmt.Errorf("telegram.vip_chat_id is required")
	}
	if c.Payment.Amount <= 0 {
		return fmt.Errorf("payment.amount must be positive")
	}
	if c.Payment.AccountNumber == "" {
		return fmt.Errorf("payment.account_number is required")
	}
	if c.Payment.ReceiverName == "" {
		return fmt.Errorf("payment.receiver_name is required")
	}
	if c.Payment.RequestTimeout <= 0 {
		return fmt.Errorf("payment.request_timeout must be positive")
	}
	if c.Image.ContrastFactor <= 0 {
		return fmt.Errorf("image.contrast_factor must be positive")
	}
	return nil
}
