package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"LIBRARY_DB", "LOG_LEVEL", "PAYMENT_GATEWAY", "MIDTRANS_SERVER_KEY",
	"MIDTRANS_PRODUCTION", "PAYMENT_TIMEOUT", "LIBRARIAN_PASSPHRASE_HASH",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "library.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, GatewaySimulated, cfg.Gateway)
	assert.Equal(t, 10*time.Second, cfg.PaymentTimeout)
	assert.False(t, cfg.MidtransProduction)
	assert.Empty(t, cfg.PassphraseHash)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIBRARY_DB=data/lib.db\nPAYMENT_TIMEOUT=3s\nLOG_LEVEL=ERROR\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/lib.db", cfg.DBPath)
	assert.Equal(t, 3*time.Second, cfg.PaymentTimeout)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LIBRARY_DB=from-file.db\n"), 0o644))
	os.Setenv("LIBRARY_DB", "from-env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown gateway", map[string]string{"PAYMENT_GATEWAY": "paypal"}},
		{"midtrans without key", map[string]string{"PAYMENT_GATEWAY": "midtrans"}},
		{"bad timeout", map[string]string{"PAYMENT_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"PAYMENT_TIMEOUT": "0s"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"bad production flag", map[string]string{"MIDTRANS_PRODUCTION": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			_, err := Load(missingFile(t))
			assert.Error(t, err)
		})
	}
}

func TestMidtransWithKey(t *testing.T) {
	clearEnv(t)
	os.Setenv("PAYMENT_GATEWAY", "midtrans")
	os.Setenv("MIDTRANS_SERVER_KEY", "SB-Mid-server-xyz")
	os.Setenv("MIDTRANS_PRODUCTION", "true")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, GatewayMidtrans, cfg.Gateway)
	assert.True(t, cfg.MidtransProduction)
}
