package vault

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAddressDeterministic(t *testing.T) {
	account := DefaultAccount(testPrincipal(t, 1))

	a := NewDepositAddresser([]byte("seed"), &chaincfg.MainNetParams)
	b := NewDepositAddresser([]byte("seed"), &chaincfg.MainNetParams)

	addr1, err := a.Address(account)
	require.NoError(t, err)
	addr2, err := a.Address(account)
	require.NoError(t, err)
	addr3, err := b.Address(account)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2, "repeat requests must return the cached address")
	assert.Equal(t, addr1, addr3, "derivation must be deterministic across instances")
	assert.True(t, strings.HasPrefix(addr1, "bc1"), "mainnet P2WPKH address expected, got %s", addr1)
}

func TestDepositAddressVariesByAccount(t *testing.T) {
	a := NewDepositAddresser([]byte("seed"), &chaincfg.MainNetParams)

	p1 := DefaultAccount(testPrincipal(t, 1))
	p2 := DefaultAccount(testPrincipal(t, 2))
	withSub, err := NewAccountID(testPrincipal(t, 1), DeriveSubaccount(testPrincipal(t, 2)))
	require.NoError(t, err)

	addr1, err := a.Address(p1)
	require.NoError(t, err)
	addr2, err := a.Address(p2)
	require.NoError(t, err)
	addr3, err := a.Address(withSub)
	require.NoError(t, err)

	assert.NotEqual(t, addr1, addr2)
	assert.NotEqual(t, addr1, addr3, "subaccount must yield its own deposit address")
}

func TestDepositAddressVariesBySeed(t *testing.T) {
	account := DefaultAccount(testPrincipal(t, 1))

	a := NewDepositAddresser([]byte("seed-a"), &chaincfg.MainNetParams)
	b := NewDepositAddresser([]byte("seed-b"), &chaincfg.MainNetParams)

	addr1, err := a.Address(account)
	require.NoError(t, err)
	addr2, err := b.Address(account)
	require.NoError(t, err)
	assert.NotEqual(t, addr1, addr2)
}

func TestDepositAddressRestoreWins(t *testing.T) {
	account := DefaultAccount(testPrincipal(t, 1))
	a := NewDepositAddresser([]byte("seed"), &chaincfg.MainNetParams)

	a.Restore(account, "bc1qstoredaddress")
	addr, err := a.Address(account)
	require.NoError(t, err)
	assert.Equal(t, "bc1qstoredaddress", addr)
}
