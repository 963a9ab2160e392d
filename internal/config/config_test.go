package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciler/internal/config"
	"invoice-reconciler/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
szamlazz:
  agent_key: agent-key-123
wise:
  token: wise-token
openai:
  api_key: sk-test
alert:
  smtp_addr: localhost:25
  from: alerts@example.com
  to: billing@example.com
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "agent-key-123", cfg.Szamlazz.AgentKey)
	assert.Equal(t, "wise-token", cfg.Wise.Token)
	// Defaults apply.
	assert.Equal(t, 70, cfg.Matching.ConfidenceThreshold)
	assert.Equal(t, "reconciler.db", cfg.Store.Path)
}

func TestLoad_MissingCredentialsIsFatal(t *testing.T) {
	_, err := config.Load(writeConfig(t, "wise:\n  token: wise-token\n"))
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SZAMLAZZ_AGENT_KEY", "from-env")
	cfg, err := config.Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Szamlazz.AgentKey)
}

func TestLoad_WooCommerceNeedsKeyAndSecret(t *testing.T) {
	content := validConfig + `
woocommerce:
  base_url: https://shop.example.com
`
	_, err := config.Load(writeConfig(t, content))
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
