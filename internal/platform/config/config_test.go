package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
server:
  port: 9090
encryption:
  master_key: ""
  scrypt_n: 1024
jwt:
  secret: jwt-secret
webhooks:
  auth_modes:
    stripe: hmac_signature
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 1024, cfg.Encryption.ScryptN)
	assert.Equal(t, 8, cfg.Encryption.ScryptR)
	assert.Equal(t, "x-webhook-token", cfg.Webhooks.TokenHeader)
	assert.Equal(t, "x-webhook-signature", cfg.Webhooks.SignatureHeader)
	assert.Equal(t, "hmac_signature", cfg.Webhooks.AuthModes["stripe"])
	assert.Equal(t, int64(1<<20), cfg.Webhooks.MaxBodySize)
}

func TestLoadEnvOverridesMasterKey(t *testing.T) {
	t.Setenv("ENCRYPTION_MASTER_KEY", "from-env")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Encryption.MasterKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvSuppliesKeysAbsentFromFile(t *testing.T) {
	t.Setenv("NOTIFICATIONS_EMAIL_API_KEY", "re_env")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, "re_env", cfg.Notifications.Email.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Webhooks.CacheTTL)
	assert.Equal(t, time.Hour, cfg.Usage.PruneInterval)
}

func TestValidateRequiresMasterKey(t *testing.T) {
	t.Setenv("ENCRYPTION_MASTER_KEY", "")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingMasterKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
