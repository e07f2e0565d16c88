package config

import (
	"flag"
	"os"
	"time"

	"github.com/guardianvault/vaultd/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-i string   identity provider shared secret
//	-w string   Bitcoin watcher shared secret
//	-t int      access token validity, minutes
//	-f uint     transfer fee, satoshis
//	-m uint     minimum withdrawal, satoshis
//	-n uint     confirmation threshold
//	-r int      recovery request TTL, minutes (0 disables expiry)
//	-b string   Bitcoin network (mainnet, testnet3, regtest)
//	-k string   deposit address derivation seed
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then
//     converted to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-i", "-w", "-t", "-f", "-m", "-n", "-r", "-b", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.IdentitySecret, "i", config.IdentitySecret, "identity provider secret")
	fs.StringVar(&config.WatcherSecret, "w", config.WatcherSecret, "bitcoin watcher secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	recoveryTTL := fs.Int("r", int(config.RecoveryTTL.Minutes()), "recovery request TTL (in minutes, 0 disables)")

	fs.Uint64Var(&config.TransferFee, "f", config.TransferFee, "transfer fee (satoshis)")
	fs.Uint64Var(&config.MinWithdrawal, "m", config.MinWithdrawal, "minimum withdrawal (satoshis)")
	confirmationThreshold := fs.Uint("n", uint(config.ConfirmationThreshold), "confirmation threshold")
	fs.StringVar(&config.ChainNetwork, "b", config.ChainNetwork, "bitcoin network")
	fs.StringVar(&config.DepositSeed, "k", config.DepositSeed, "deposit address derivation seed")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RecoveryTTL = time.Duration(*recoveryTTL) * time.Minute
	config.ConfirmationThreshold = uint32(*confirmationThreshold)
}
