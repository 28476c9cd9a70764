package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Gateway names accepted in PAYMENT_GATEWAY.
const (
	GatewaySimulated = "simulated"
	GatewayMidtrans  = "midtrans"
)

// Config holds the settings for the CLI and importer.
type Config struct {
	DBPath   string `validate:"required"`
	LogLevel string `validate:"oneof=info error fatal off"`

	Gateway            string        `validate:"oneof=simulated midtrans"`
	MidtransServerKey  string        `validate:"required_if=Gateway midtrans"`
	MidtransProduction bool
	PaymentTimeout     time.Duration `validate:"gt=0"`

	// PassphraseHash is a bcrypt hash. When set, refunds ask for the
	// librarian passphrase.
	PassphraseHash string
}

// Load reads the optional env files (default ".env"), then the environment,
// and validates the result. Variables already set in the environment win
// over the files.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("PAYMENT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_TIMEOUT: %w", err)
	}
	production, err := strconv.ParseBool(getEnv("MIDTRANS_PRODUCTION", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIDTRANS_PRODUCTION: %w", err)
	}

	cfg := &Config{
		DBPath:             getEnv("LIBRARY_DB", "library.db"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Gateway:            strings.ToLower(getEnv("PAYMENT_GATEWAY", GatewaySimulated)),
		MidtransServerKey:  getEnv("MIDTRANS_SERVER_KEY", ""),
		MidtransProduction: production,
		PaymentTimeout:     timeout,
		PassphraseHash:     getEnv("LIBRARIAN_PASSPHRASE_HASH", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
