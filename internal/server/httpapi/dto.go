package httpapi

import (
	"time"
)

// Wire DTOs. Subaccounts travel as hex strings, memos as base64 (the
// default encoding/json treatment of []byte), txids as the usual
// reversed-hex Bitcoin display form.

type sessionRequest struct {
	Principal      string `json:"principal"`
	IdentitySecret string `json:"identity_secret"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

type guardiansRequest struct {
	Guardians []string `json:"guardians"`
	Quorum    uint32   `json:"quorum"`
}

type guardiansResponse struct {
	Owner     string   `json:"owner"`
	Guardians []string `json:"guardians"`
	Quorum    uint32   `json:"quorum"`
}

type recoveryOpenRequest struct {
	NewOwner string `json:"new_owner"`
}

type recoveryOpenResponse struct {
	ID uint64 `json:"id"`
}

type approvalResponse struct {
	Finalized bool `json:"finalized"`
}

type recoveryStatusResponse struct {
	ID             uint64    `json:"id"`
	RequestedOwner string    `json:"requested_owner"`
	State          string    `json:"state"`
	Approvals      []string  `json:"approvals"`
	CreatedAt      time.Time `json:"created_at"`
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

type feeResponse struct {
	Fee uint64 `json:"fee"`
}

type transferRequest struct {
	FromSubaccount string  `json:"from_subaccount,omitempty"`
	ToOwner        string  `json:"to_owner"`
	ToSubaccount   string  `json:"to_subaccount,omitempty"`
	Amount         uint64  `json:"amount"`
	Fee            *uint64 `json:"fee,omitempty"`
	Memo           []byte  `json:"memo,omitempty"`
}

type transferResponse struct {
	ID uint64 `json:"id"`
}

type withdrawalRequest struct {
	FromSubaccount string `json:"from_subaccount,omitempty"`
	Address        string `json:"address"`
	Amount         uint64 `json:"amount"`
}

type transactionResponse struct {
	ID             uint64    `json:"id"`
	Kind           string    `json:"kind"`
	FromOwner      string    `json:"from_owner,omitempty"`
	FromSubaccount string    `json:"from_subaccount,omitempty"`
	ToOwner        string    `json:"to_owner,omitempty"`
	ToSubaccount   string    `json:"to_subaccount,omitempty"`
	Amount         uint64    `json:"amount"`
	Fee            uint64    `json:"fee"`
	Memo           []byte    `json:"memo,omitempty"`
	BtcAddress     string    `json:"btc_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type depositAddressResponse struct {
	Address string `json:"address"`
}

type utxoResponse struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Value         uint64 `json:"value"`
	Confirmations uint32 `json:"confirmations"`
	Height        uint32 `json:"height,omitempty"`
	State         string `json:"state"`
}

type utxoReportRequest struct {
	Owner         string `json:"owner"`
	Subaccount    string `json:"subaccount,omitempty"`
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Value         uint64 `json:"value"`
	Confirmations uint32 `json:"confirmations"`
	Height        uint32 `json:"height,omitempty"`
}

type utxoReportResponse struct {
	Credited bool `json:"credited"`
}

type utxoSpentRequest struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}
