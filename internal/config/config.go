package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Suppression SuppressionConfig `yaml:"suppression"`
	Mail        MailConfig        `yaml:"mail"`
	Tracking    TrackingConfig    `yaml:"tracking"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Captcha     CaptchaConfig     `yaml:"captcha"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// SubmitPerMinute throttles the public lead form per client IP.
	// Zero or negative disables the throttle.
	SubmitPerMinute int `yaml:"submit_per_minute"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SuppressionConfig struct {
	Path string `yaml:"path"`
}

// MailConfig is the legacy single-channel configuration. It is only
// consulted when no channel record resolves for a purpose.
type MailConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Security  string `yaml:"security"` // auto, ssl, starttls, none
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	ReplyTo   string `yaml:"reply_to"`
}

// Configured reports whether a usable legacy mail fallback exists
func (m MailConfig) Configured() bool {
	return m.Host != "" && m.FromEmail != ""
}

type TrackingConfig struct {
	// BaseURL is the externally reachable prefix for tracking endpoints,
	// e.g. https://www.example.com
	BaseURL string `yaml:"base_url"`
}

type DeliveryConfig struct {
	// SendDelay is the pause between consecutive sends in a batch
	SendDelay time.Duration `yaml:"send_delay"`
	// Timeout bounds a single transport send
	Timeout time.Duration `yaml:"timeout"`
	// DispatchInterval is how often the dispatcher checks for due campaigns
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
}

type CaptchaConfig struct {
	Provider  string  `yaml:"provider"` // google_v2, google_v3, turnstile, hcaptcha
	SiteKey   string  `yaml:"site_key"`
	SecretKey string  `yaml:"secret_key"`
	MinScore  float64 `yaml:"min_score"` // google_v3 only
}

// Enabled reports whether lead submissions require CAPTCHA verification
func (c CaptchaConfig) Enabled() bool {
	return c.Provider != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Server.SubmitPerMinute == 0 {
		cfg.Server.SubmitPerMinute = 12
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/socialbluepro/app.db"
	}
	if cfg.Suppression.Path == "" {
		cfg.Suppression.Path = "/var/lib/socialbluepro/suppression.db"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.Security == "" {
		cfg.Mail.Security = "auto"
	}
	if cfg.Delivery.SendDelay == 0 {
		cfg.Delivery.SendDelay = 100 * time.Millisecond
	}
	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = 30 * time.Second
	}
	if cfg.Delivery.DispatchInterval == 0 {
		cfg.Delivery.DispatchInterval = time.Minute
	}
	if cfg.Captcha.Provider == "google_v3" && cfg.Captcha.MinScore == 0 {
		cfg.Captcha.MinScore = 0.5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Tracking.BaseURL == "" {
		return fmt.Errorf("tracking.base_url is required")
	}
	switch cfg.Mail.Security {
	case "auto", "ssl", "starttls", "none":
	default:
		return fmt.Errorf("mail.security must be one of auto, ssl, starttls, none")
	}
	if cfg.Captcha.Provider != "" {
		switch cfg.Captcha.Provider {
		case "google_v2", "google_v3", "turnstile", "hcaptcha":
		default:
			return fmt.Errorf("captcha.provider %q is not supported", cfg.Captcha.Provider)
		}
		if cfg.Captcha.SecretKey == "" {
			return fmt.Errorf("captcha.secret_key is required when captcha.provider is set")
		}
	}
	return nil
}
