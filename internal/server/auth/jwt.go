// Package auth issues and verifies the session tokens that carry a
// caller's principal across the HTTP boundary. Identity acquisition
// itself happens upstream; the vault only trusts principals presented in
// tokens signed with its secret.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/guardianvault/vaultd/internal/common"
)

// Claims extends the registered JWT claims with the caller's principal in
// canonical text form.
type Claims struct {
	jwt.RegisteredClaims
	Principal string
}

// GenerateToken mints an HS256 session token for the given principal
// text, valid for validityDuration.
func GenerateToken(principal string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Principal: principal,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetPrincipalFromToken verifies the token signature and expiry and
// returns the embedded principal text.
func GetPrincipalFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Principal == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Principal, nil
}
