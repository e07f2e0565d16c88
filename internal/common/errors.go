// Package common defines shared constants and sentinel errors used across
// the vault layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Generic service-level errors.
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorInvalidRequest = errors.New("invalid request")

	// Guardian registry errors.
	ErrInvalidQuorum         = errors.New("invalid quorum")
	ErrNoGuardiansConfigured = errors.New("no guardians configured")

	// Recovery errors.
	ErrAlreadyFinalized = errors.New("recovery request already closed")
	ErrOwnerConflict    = errors.New("proposed owner already controls a vault")

	// Ledger errors.
	ErrInvalidRecipient  = errors.New("invalid recipient")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMemoTooLarge      = errors.New("memo too large")
	ErrAmountTooLow      = errors.New("amount below withdrawal minimum")

	// UTXO tracker errors. ErrDuplicateOutpoint signals a broken
	// idempotency invariant and is never expected in correct operation.
	ErrDuplicateOutpoint = errors.New("outpoint already credited")

	// Principal / account encoding errors.
	ErrInvalidPrincipal  = errors.New("invalid principal")
	ErrInvalidSubaccount = errors.New("invalid subaccount")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
