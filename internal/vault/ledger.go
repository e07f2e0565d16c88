package vault

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/guardianvault/vaultd/internal/common"
)

// TransactionKind classifies ledger history entries.
type TransactionKind string

const (
	TxTransfer   TransactionKind = "transfer"
	TxMint       TransactionKind = "mint"
	TxWithdrawal TransactionKind = "withdrawal"
)

// Transaction is one committed ledger movement. From is empty for mints,
// To is empty for withdrawals (BtcAddress carries the destination).
type Transaction struct {
	ID         uint64
	Kind       TransactionKind
	From       AccountID
	To         AccountID
	Amount     uint64
	Fee        uint64
	Memo       []byte
	BtcAddress string
	Timestamp  time.Time
}

// Ledger is the custodial satoshi ledger: balances per account, fee-aware
// transfers, idempotent crediting from confirmed deposits, and burns for
// Bitcoin withdrawals. Balances never go negative; every mutation is
// all-or-nothing.
type Ledger struct {
	fee           uint64
	minWithdrawal uint64
	chainParams   *chaincfg.Params

	balances map[string]uint64
	minted   map[OutPoint]struct{}

	nextTransferID uint64
	history        []Transaction
}

// NewLedger creates an empty ledger charging fee satoshis per transfer and
// rejecting withdrawals below minWithdrawal. chainParams selects the
// Bitcoin network used to validate withdrawal addresses.
func NewLedger(fee, minWithdrawal uint64, chainParams *chaincfg.Params) *Ledger {
	return &Ledger{
		fee:            fee,
		minWithdrawal:  minWithdrawal,
		chainParams:    chainParams,
		balances:       make(map[string]uint64),
		minted:         make(map[OutPoint]struct{}),
		nextTransferID: 1,
	}
}

// TransferFee returns the relay fee charged per transfer. It is fixed for
// the ledger's lifetime, so a fee quoted to a caller stays valid for the
// transfer that follows.
func (l *Ledger) TransferFee() uint64 {
	return l.fee
}

// BalanceOf returns the account balance; unknown accounts read as zero.
func (l *Ledger) BalanceOf(a AccountID) uint64 {
	return l.balances[a.key()]
}

// SetBalance seeds an account balance. Used when hydrating ledger state
// from storage; it is not a transfer and records no history.
func (l *Ledger) SetBalance(a AccountID, balance uint64) {
	l.balances[a.key()] = balance
}

// MarkMinted seeds the credited-outpoint set when hydrating from storage.
func (l *Ledger) MarkMinted(op OutPoint) {
	l.minted[op] = struct{}{}
}

// Minted reports whether the outpoint has already credited the ledger.
func (l *Ledger) Minted(op OutPoint) bool {
	_, ok := l.minted[op]
	return ok
}

// Transfer moves amount satoshis from caller's account to the recipient,
// debiting amount plus the effective fee from the sender and burning the
// fee. fee overrides the ledger fee when non-nil. The debit and credit are
// applied together or not at all; on success the committed Transaction is
// returned with a fresh monotonically increasing id.
func (l *Ledger) Transfer(from, to AccountID, amount uint64, fee *uint64, memo []byte, now time.Time) (Transaction, error) {
	if to.Owner.IsZero() {
		return Transaction{}, common.ErrInvalidRecipient
	}
	if amount == 0 {
		return Transaction{}, common.ErrInvalidAmount
	}
	if err := validateMemo(memo); err != nil {
		return Transaction{}, err
	}

	effectiveFee := l.fee
	if fee != nil {
		effectiveFee = *fee
	}
	total, overflow := checkedAdd(amount, effectiveFee)
	balance := l.balances[from.key()]
	if overflow || total > balance {
		return Transaction{}, fmt.Errorf("%w: need %d + %d, have %d",
			common.ErrInsufficientFunds, amount, effectiveFee, balance)
	}

	l.balances[from.key()] = balance - total
	l.balances[to.key()] += amount

	tx := Transaction{
		ID:        l.nextTransferID,
		Kind:      TxTransfer,
		From:      from,
		To:        to,
		Amount:    amount,
		Fee:       effectiveFee,
		Memo:      append([]byte(nil), memo...),
		Timestamp: now,
	}
	l.nextTransferID++
	l.history = append(l.history, tx)
	return tx, nil
}

// Mint credits value satoshis to the account for a newly confirmed
// deposit. Crediting is keyed by outpoint and happens at most once: a
// second mint for the same outpoint is an invariant violation and returns
// ErrDuplicateOutpoint with no state change.
func (l *Ledger) Mint(to AccountID, value uint64, op OutPoint, now time.Time) (Transaction, error) {
	if l.Minted(op) {
		return Transaction{}, fmt.Errorf("%w: %s", common.ErrDuplicateOutpoint, op)
	}
	l.minted[op] = struct{}{}
	l.balances[to.key()] += value

	tx := Transaction{
		ID:        l.nextTransferID,
		Kind:      TxMint,
		To:        to,
		Amount:    value,
		Timestamp: now,
	}
	l.nextTransferID++
	l.history = append(l.history, tx)
	return tx, nil
}

// Withdraw burns amount plus the relay fee from the account to back a
// Bitcoin retrieval to btcAddress. The address must parse for the
// ledger's network; amounts below the withdrawal minimum are rejected.
func (l *Ledger) Withdraw(from AccountID, btcAddress string, amount uint64, now time.Time) (Transaction, error) {
	addr, err := btcutil.DecodeAddress(btcAddress, l.chainParams)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", common.ErrInvalidRecipient, err)
	}
	if !addr.IsForNet(l.chainParams) {
		return Transaction{}, fmt.Errorf("%w: address is for another network", common.ErrInvalidRecipient)
	}
	if amount == 0 {
		return Transaction{}, common.ErrInvalidAmount
	}
	if amount < l.minWithdrawal {
		return Transaction{}, fmt.Errorf("%w: %d < %d", common.ErrAmountTooLow, amount, l.minWithdrawal)
	}

	total, overflow := checkedAdd(amount, l.fee)
	balance := l.balances[from.key()]
	if overflow || total > balance {
		return Transaction{}, fmt.Errorf("%w: need %d + %d, have %d",
			common.ErrInsufficientFunds, amount, l.fee, balance)
	}

	l.balances[from.key()] = balance - total

	tx := Transaction{
		ID:         l.nextTransferID,
		Kind:       TxWithdrawal,
		From:       from,
		Amount:     amount,
		Fee:        l.fee,
		BtcAddress: addr.EncodeAddress(),
		Timestamp:  now,
	}
	l.nextTransferID++
	l.history = append(l.history, tx)
	return tx, nil
}

// Transactions returns the history entries touching the given principal,
// oldest first.
func (l *Ledger) Transactions(p Principal) []Transaction {
	var out []Transaction
	for _, tx := range l.history {
		if tx.From.Owner == p || tx.To.Owner == p {
			out = append(out, tx)
		}
	}
	return out
}
