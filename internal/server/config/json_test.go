package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":                  ":9000",
		"database_dsn":                   "postgres://db.example/vault",
		"secret_key":                     "jsonkey",
		"identity_secret":                "jsonidentity",
		"watcher_secret":                 "jsonwatcher",
		"access_token_validity_duration": "30m",
		"transfer_fee":                   25,
		"min_withdrawal":                 100000,
		"confirmation_threshold":         12,
		"recovery_ttl":                   "24h",
		"chain_network":                  "testnet3",
		"deposit_seed":                   "jsonseed",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, ":9000", cfg.EndpointAddr)
		assert.Equal(t, "postgres://db.example/vault", cfg.DatabaseDSN)
		assert.Equal(t, "jsonkey", cfg.SecretKey)
		assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, uint64(25), cfg.TransferFee)
		assert.Equal(t, uint64(100000), cfg.MinWithdrawal)
		assert.Equal(t, uint32(12), cfg.ConfirmationThreshold)
		assert.Equal(t, 24*time.Hour, cfg.RecoveryTTL)
		assert.Equal(t, "testnet3", cfg.ChainNetwork)
		assert.Equal(t, "jsonseed", cfg.DepositSeed)
	})

	t.Run("no config flag means no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddr: ":1234",
			TransferFee:  42,
		}
		parseJson(cfg)

		assert.Equal(t, ":1234", cfg.EndpointAddr)
		assert.Equal(t, uint64(42), cfg.TransferFee)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
