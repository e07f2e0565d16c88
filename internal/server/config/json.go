package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/guardianvault/vaultd/internal/flagx"
	"github.com/guardianvault/vaultd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into
// the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                string         `json:"endpoint_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	IdentitySecret              string         `json:"identity_secret"`
	WatcherSecret               string         `json:"watcher_secret"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	TransferFee                 uint64         `json:"transfer_fee"`
	MinWithdrawal               uint64         `json:"min_withdrawal"`
	ConfirmationThreshold       uint32         `json:"confirmation_threshold"`
	RecoveryTTL                 timex.Duration `json:"recovery_ttl"`
	ChainNetwork                string         `json:"chain_network"`
	DepositSeed                 string         `json:"deposit_seed"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config
// command-line flags; if neither is set, no JSON file is loaded. If the
// file cannot be read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.IdentitySecret = c.IdentitySecret
	config.WatcherSecret = c.WatcherSecret
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.TransferFee = c.TransferFee
	config.MinWithdrawal = c.MinWithdrawal
	config.ConfirmationThreshold = c.ConfirmationThreshold
	config.RecoveryTTL = time.Duration(c.RecoveryTTL.Duration)
	config.ChainNetwork = c.ChainNetwork
	config.DepositSeed = c.DepositSeed
}
