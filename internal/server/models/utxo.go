package models

import "time"

// Utxo is one tracked deposit output row, keyed by (txid, vout). Seq is a
// database sequence recording discovery order.
type Utxo struct {
	TxID          []byte
	Vout          uint32
	Owner         string
	Subaccount    []byte
	Value         uint64
	Confirmations uint32
	Height        uint32
	State         string
	Seq           uint64
	DiscoveredAt  time.Time
}

// DepositAddress binds a ledger account to its issued Bitcoin address.
type DepositAddress struct {
	Owner      string
	Subaccount []byte
	Address    string
	CreatedAt  time.Time
}
