// Package models defines the persistence row shapes shared by the
// repositories and services. Principals and accounts are stored in their
// canonical text/byte forms; the service layer converts to core types.
package models

import "time"

// Vault is the recovery aggregate row set for one account: the vault row
// itself plus its guardians and recovery requests.
type Vault struct {
	ID             string
	Owner          string
	Quorum         uint32
	NextRecoveryID uint64
	Guardians      []string
	Requests       []*RecoveryRequest
	CreatedAt      time.Time
}

// RecoveryRequest is one recovery request row with its approval set.
type RecoveryRequest struct {
	VaultID        string
	RID            uint64
	RequestedOwner string
	State          string
	Approvals      []string
	CreatedAt      time.Time
}
