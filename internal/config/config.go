// Package config reads the storefront programs' settings from the
// environment, after loading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/pricing"
	"github.com/joho/godotenv"
)

// MinJWTSecretLength is the shortest signing secret the API accepts
const MinJWTSecretLength = 32

var ErrInvalidConfig = errors.New("invalid configuration")

// Pricing holds the delivery and tax parameters
type Pricing struct {
	FreeDeliveryThreshold pricing.Money `env:"FREE_DELIVERY_THRESHOLD" envDefault:"500"`
	DeliveryFee           pricing.Money `env:"DELIVERY_FEE"            envDefault:"35"`
	TaxRate               pricing.Rate  `env:"TAX_RATE"                envDefault:"15%"`
}

func (p Pricing) Policy() pricing.Policy {
	return pricing.Policy{
		FreeDeliveryThreshold: p.FreeDeliveryThreshold,
		DeliveryFee:           p.DeliveryFee,
		TaxRate:               p.TaxRate,
	}
}

func (p Pricing) validate() error {
	if p.FreeDeliveryThreshold < 0 || p.DeliveryFee < 0 || p.TaxRate < 0 {
		return fmt.Errorf("%w: pricing values must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Kafka is left disabled when no brokers are given
type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC"   envDefault:"storefront-orders"`
}

func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// APIConfig configures the mock backend
type APIConfig struct {
	Addr        string        `env:"API_ADDR"     envDefault:":8080"`
	JWTSecret   string        `env:"JWT_SECRET,required"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"24h"`
	// DatabaseURL selects the Postgres read store; empty keeps data in memory
	DatabaseURL          string        `env:"DATABASE_URL"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
	DemoEmail            string        `env:"DEMO_EMAIL"`
	DemoPassword         string        `env:"DEMO_PASSWORD"`
	Kafka                Kafka
	Pricing              Pricing
}

func (c APIConfig) Validate() error {
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d characters long", ErrInvalidConfig, MinJWTSecretLength)
	}
	if c.TokenExpiry <= 0 {
		return fmt.Errorf("%w: TOKEN_EXPIRY must be positive", ErrInvalidConfig)
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("%w: SESSION_SWEEP_INTERVAL must be positive", ErrInvalidConfig)
	}
	if (c.DemoEmail == "") != (c.DemoPassword == "") {
		return fmt.Errorf("%w: DEMO_EMAIL and DEMO_PASSWORD must be set together", ErrInvalidConfig)
	}
	return c.Pricing.validate()
}

// SMTP settings for outgoing mail
type SMTP struct {
	Host     string `env:"SMTP_HOST"     envDefault:"localhost"`
	Port     int    `env:"SMTP_PORT"     envDefault:"1025"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"     envDefault:"noreply@storefront.example"`
	TLS      string `env:"SMTP_TLS"      envDefault:"opportunistic"`
}

func (s SMTP) EmailConfig() email.Config {
	return email.Config{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
		TLS:      s.TLS,
	}
}

// NotifierConfig configures the order email service
type NotifierConfig struct {
	GroupID     string `env:"KAFKA_GROUP_ID" envDefault:"storefront-notifier"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9091"`
	// DatabaseURL, when set, lets the notifier look up the customer's
	// current profile
	DatabaseURL string `env:"DATABASE_URL"`
	// EmailLanguage is the language customer emails are written in
	EmailLanguage string `env:"EMAIL_LANGUAGE" envDefault:"en"`
	Kafka         Kafka
	SMTP          SMTP
}

// Language is the parsed EMAIL_LANGUAGE
func (c NotifierConfig) Language() appstate.Language {
	return displayLanguage(c.EmailLanguage)
}

func (c NotifierConfig) Validate() error {
	if !c.Kafka.Enabled() {
		return fmt.Errorf("%w: KAFKA_BROKERS is required", ErrInvalidConfig)
	}
	if _, err := appstate.ParseLanguage(c.EmailLanguage); err != nil {
		return fmt.Errorf("%w: EMAIL_LANGUAGE: %w", ErrInvalidConfig, err)
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("%w: SMTP_PORT %d out of range", ErrInvalidConfig, c.SMTP.Port)
	}
	switch c.SMTP.TLS {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("%w: SMTP_TLS must be mandatory, opportunistic or none", ErrInvalidConfig)
	}
	return nil
}

// ClientConfig configures the command line storefront
type ClientConfig struct {
	BaseURL string        `env:"STOREFRONT_API_URL"     envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"STOREFRONT_API_TIMEOUT" envDefault:"10s"`
	// JournalTopic receives every dispatched action when Kafka is enabled
	JournalTopic string `env:"JOURNAL_TOPIC" envDefault:"storefront-actions"`
	// DisplayLanguage is the language the command line output uses
	DisplayLanguage string `env:"STOREFRONT_LANGUAGE" envDefault:"en"`
	Kafka           Kafka
	Pricing         Pricing
}

// Language is the parsed STOREFRONT_LANGUAGE
func (c ClientConfig) Language() appstate.Language {
	return displayLanguage(c.DisplayLanguage)
}

func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: STOREFRONT_API_URL is required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: STOREFRONT_API_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if _, err := appstate.ParseLanguage(c.DisplayLanguage); err != nil {
		return fmt.Errorf("%w: STOREFRONT_LANGUAGE: %w", ErrInvalidConfig, err)
	}
	return c.Pricing.validate()
}

func LoadAPI() (APIConfig, error) {
	var cfg APIConfig
	if err := load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func LoadNotifier() (NotifierConfig, error) {
	var cfg NotifierConfig
	if err := load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	if err := load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func displayLanguage(s string) appstate.Language {
	if l, err := appstate.ParseLanguage(s); err == nil {
		return l
	}
	return appstate.LanguageEnglish
}

// load reads .env if present, then the environment. Variables already set
// in the environment win over the file.
func load(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Config] Ignoring .env: %v", err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
