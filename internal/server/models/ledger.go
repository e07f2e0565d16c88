package models

import "time"

// LedgerAccount is one balance row, keyed by (owner, subaccount).
type LedgerAccount struct {
	Owner      string
	Subaccount []byte
	Balance    uint64
}

// Transaction is one committed ledger movement. The id is assigned by the
// database and is the transfer identifier returned to callers.
type Transaction struct {
	ID             uint64
	Kind           string
	FromOwner      string
	FromSubaccount []byte
	ToOwner        string
	ToSubaccount   []byte
	Amount         uint64
	Fee            uint64
	Memo           []byte
	BtcAddress     string
	CreatedAt      time.Time
}
