package services

import (
	"crypto/subtle"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/server/auth"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/vault"
)

// SessionService mints short-lived access tokens for authenticated
// principals. The identity provider proves itself with a shared secret;
// principal authentication itself happens upstream.
type SessionService struct {
	config *config.Config
}

func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{config: cfg}
}

// Issue verifies the identity-provider secret and returns a signed
// access token carrying the principal.
func (s *SessionService) Issue(principal vault.Principal, identitySecret string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(identitySecret), []byte(s.config.IdentitySecret)) != 1 {
		return "", common.ErrorUnauthorized
	}
	return auth.GenerateToken(principal.String(), []byte(s.config.SecretKey), s.config.AccessTokenValidityDuration)
}

// VerifyWatcher checks the shared secret the Bitcoin watcher presents on
// report submissions.
func (s *SessionService) VerifyWatcher(secret string) error {
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.WatcherSecret)) != 1 {
		return common.ErrorUnauthorized
	}
	return nil
}
