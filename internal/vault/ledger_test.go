package vault

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardianvault/vaultd/internal/common"
)

const (
	testFee           = 10
	testMinWithdrawal = 10_000
)

func newTestLedger(t *testing.T) (*Ledger, AccountID, AccountID) {
	t.Helper()
	l := NewLedger(testFee, testMinWithdrawal, &chaincfg.RegressionNetParams)
	sender := DefaultAccount(testPrincipal(t, 1))
	recipient := DefaultAccount(testPrincipal(t, 2))
	return l, sender, recipient
}

func testOutPoint(t *testing.T, tag byte, vout uint32) OutPoint {
	t.Helper()
	var txid [32]byte
	txid[0] = tag
	op, err := NewOutPoint(chainhashString(txid), vout)
	require.NoError(t, err)
	return op
}

func chainhashString(b [32]byte) string {
	const hextable = "0123456789abcdef"
	// chainhash renders txids byte-reversed; any fixed hex works here.
	out := make([]byte, 64)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}

func TestTransferMovesFunds(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	l.SetBalance(sender, 1_000_000)

	tx, err := l.Transfer(sender, recipient, 400_000, nil, []byte("rent"), testNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tx.ID)
	assert.Equal(t, uint64(testFee), tx.Fee)

	assert.Equal(t, uint64(1_000_000-400_000-testFee), l.BalanceOf(sender))
	assert.Equal(t, uint64(400_000), l.BalanceOf(recipient))
}

// The worked fee scenario: balance 1,000,000 sat, fee 10. A transfer of the
// full balance fails; a transfer of balance-fee drains the account to zero.
func TestTransferFeeBoundary(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	l.SetBalance(sender, 1_000_000)

	_, err := l.Transfer(sender, recipient, 1_000_000, nil, nil, testNow)
	require.ErrorIs(t, err, common.ErrInsufficientFunds)
	assert.Equal(t, uint64(1_000_000), l.BalanceOf(sender), "failed transfer must not move funds")
	assert.Zero(t, l.BalanceOf(recipient))

	tx, err := l.Transfer(sender, recipient, 999_990, nil, nil, testNow)
	require.NoError(t, err)
	assert.Zero(t, l.BalanceOf(sender))
	assert.Equal(t, uint64(999_990), l.BalanceOf(recipient))
	assert.Equal(t, uint64(999_990), tx.Amount)
}

func TestTransferExplicitFeeOverride(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	l.SetBalance(sender, 1_000)

	fee := uint64(0)
	_, err := l.Transfer(sender, recipient, 1_000, &fee, nil, testNow)
	require.NoError(t, err)
	assert.Zero(t, l.BalanceOf(sender))
}

func TestTransferValidation(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	l.SetBalance(sender, 1_000)

	_, err := l.Transfer(sender, AccountID{}, 100, nil, nil, testNow)
	assert.ErrorIs(t, err, common.ErrInvalidRecipient)

	_, err = l.Transfer(sender, recipient, 0, nil, nil, testNow)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = l.Transfer(sender, recipient, 100, nil, make([]byte, MemoMaxLen+1), testNow)
	assert.ErrorIs(t, err, common.ErrMemoTooLarge)

	// Amount+fee overflow must read as insufficient funds, not wrap.
	huge := uint64(1<<64 - 1)
	_, err = l.Transfer(sender, recipient, huge, nil, nil, testNow)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	// No validation failure moved funds.
	assert.Equal(t, uint64(1_000), l.BalanceOf(sender))
	assert.Zero(t, l.BalanceOf(recipient))
}

func TestTransferIDsIncrease(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	l.SetBalance(sender, 10_000)

	var last uint64
	for i := 0; i < 3; i++ {
		tx, err := l.Transfer(sender, recipient, 100, nil, nil, testNow)
		require.NoError(t, err)
		assert.Greater(t, tx.ID, last)
		last = tx.ID
	}
}

func TestMintIdempotencyPerOutpoint(t *testing.T) {
	l, sender, _ := newTestLedger(t)
	op := testOutPoint(t, 1, 0)

	_, err := l.Mint(sender, 50_000, op, testNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000), l.BalanceOf(sender))

	_, err = l.Mint(sender, 50_000, op, testNow)
	require.ErrorIs(t, err, common.ErrDuplicateOutpoint)
	assert.Equal(t, uint64(50_000), l.BalanceOf(sender), "duplicate mint must not credit")

	// A different vout on the same txid is a distinct outpoint.
	_, err = l.Mint(sender, 20_000, testOutPoint(t, 1, 1), testNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(70_000), l.BalanceOf(sender))
}

func TestWithdrawBurnsAmountPlusFee(t *testing.T) {
	l, sender, _ := newTestLedger(t)
	l.SetBalance(sender, 100_000)

	// Regtest P2WPKH address derived the same way deposit addresses are.
	addresser := NewDepositAddresser([]byte("seed"), &chaincfg.RegressionNetParams)
	addr, err := addresser.Address(sender)
	require.NoError(t, err)

	tx, err := l.Withdraw(sender, addr, 50_000, testNow)
	require.NoError(t, err)
	assert.Equal(t, TxWithdrawal, tx.Kind)
	assert.Equal(t, addr, tx.BtcAddress)
	assert.Equal(t, uint64(100_000-50_000-testFee), l.BalanceOf(sender))
}

func TestWithdrawValidation(t *testing.T) {
	l, sender, _ := newTestLedger(t)
	l.SetBalance(sender, 100_000)

	addresser := NewDepositAddresser([]byte("seed"), &chaincfg.RegressionNetParams)
	addr, err := addresser.Address(sender)
	require.NoError(t, err)

	_, err = l.Withdraw(sender, "not-an-address", 50_000, testNow)
	assert.ErrorIs(t, err, common.ErrInvalidRecipient)

	_, err = l.Withdraw(sender, addr, 0, testNow)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = l.Withdraw(sender, addr, testMinWithdrawal-1, testNow)
	assert.ErrorIs(t, err, common.ErrAmountTooLow)

	_, err = l.Withdraw(sender, addr, 200_000, testNow)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	assert.Equal(t, uint64(100_000), l.BalanceOf(sender))
}

func TestTransactionsFilterByPrincipal(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	other := DefaultAccount(testPrincipal(t, 3))
	l.SetBalance(sender, 10_000)
	l.SetBalance(other, 10_000)

	_, err := l.Transfer(sender, recipient, 100, nil, nil, testNow)
	require.NoError(t, err)
	_, err = l.Transfer(other, recipient, 200, nil, nil, testNow)
	require.NoError(t, err)

	mine := l.Transactions(sender.Owner)
	require.Len(t, mine, 1)
	assert.Equal(t, uint64(100), mine[0].Amount)

	theirs := l.Transactions(recipient.Owner)
	assert.Len(t, theirs, 2)
}

func TestBalanceNeverNegative(t *testing.T) {
	l, sender, recipient := newTestLedger(t)
	l.SetBalance(sender, 500)

	for i := 0; i < 10; i++ {
		_, _ = l.Transfer(sender, recipient, 200, nil, nil, testNow)
	}
	// Two transfers of 200+10 fit in 500; everything after fails cleanly.
	assert.Equal(t, uint64(500-2*210), l.BalanceOf(sender))
	assert.Equal(t, uint64(400), l.BalanceOf(recipient))
}
