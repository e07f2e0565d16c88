// Package client implements the API client the CLI talks to the vault
// server with.
package client

import (
	"context"
	"time"
)

// GuardianSet mirrors the guardian configuration of a vault.
type GuardianSet struct {
	Owner     string   `json:"owner"`
	Guardians []string `json:"guardians"`
	Quorum    uint32   `json:"quorum"`
}

// RecoveryRequest mirrors one recovery request on a vault.
type RecoveryRequest struct {
	ID             uint64    `json:"id"`
	RequestedOwner string    `json:"requested_owner"`
	State          string    `json:"state"`
	Approvals      []string  `json:"approvals"`
	CreatedAt      time.Time `json:"created_at"`
}

// Transaction mirrors one ledger history entry.
type Transaction struct {
	ID             uint64    `json:"id"`
	Kind           string    `json:"kind"`
	FromOwner      string    `json:"from_owner"`
	FromSubaccount string    `json:"from_subaccount"`
	ToOwner        string    `json:"to_owner"`
	ToSubaccount   string    `json:"to_subaccount"`
	Amount         uint64    `json:"amount"`
	Fee            uint64    `json:"fee"`
	Memo           []byte    `json:"memo"`
	BtcAddress     string    `json:"btc_address"`
	CreatedAt      time.Time `json:"created_at"`
}

// Utxo mirrors one tracked deposit output.
type Utxo struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Value         uint64 `json:"value"`
	Confirmations uint32 `json:"confirmations"`
	Height        uint32 `json:"height"`
	State         string `json:"state"`
}

type Client interface {
	// Login obtains a session token for the principal and keeps it for
	// subsequent calls.
	Login(ctx context.Context, principal, identitySecret string) error

	GetGuardians(ctx context.Context) (*GuardianSet, error)
	SetGuardians(ctx context.Context, guardians []string, quorum uint32) (*GuardianSet, error)
	VaultGuardians(ctx context.Context, owner string) (*GuardianSet, error)

	RequestRecovery(ctx context.Context, owner, newOwner string) (uint64, error)
	ApproveRecovery(ctx context.Context, owner string, id uint64) (bool, error)
	RecoveryStatus(ctx context.Context, owner string, id uint64) (*RecoveryRequest, error)
	RecoveryRequests(ctx context.Context, owner string) ([]*RecoveryRequest, error)

	Balance(ctx context.Context) (uint64, error)
	Fee(ctx context.Context) (uint64, error)
	Transfer(ctx context.Context, toOwner string, amount uint64, memo []byte) (uint64, error)
	Withdraw(ctx context.Context, address string, amount uint64) (uint64, error)
	Transactions(ctx context.Context) ([]*Transaction, error)

	DepositAddress(ctx context.Context) (string, error)
	Utxos(ctx context.Context) ([]*Utxo, error)
	PendingUtxos(ctx context.Context) ([]*Utxo, error)
}
