package vault

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// DepositAddresser derives the Bitcoin deposit address bound to each
// ledger account. Derivation is deterministic in (seed, principal,
// subaccount), so the same account always receives the same address for
// the lifetime of the vault; addresses are cached on first request.
type DepositAddresser struct {
	seed        []byte
	chainParams *chaincfg.Params
	cache       map[string]string
}

// NewDepositAddresser creates an addresser keyed by the vault's deposit
// seed on the given Bitcoin network.
func NewDepositAddresser(seed []byte, chainParams *chaincfg.Params) *DepositAddresser {
	return &DepositAddresser{
		seed:        append([]byte(nil), seed...),
		chainParams: chainParams,
		cache:       make(map[string]string),
	}
}

// Restore seeds a previously issued address so later calls keep returning
// it even if the derivation scheme ever changes.
func (d *DepositAddresser) Restore(account AccountID, address string) {
	d.cache[account.key()] = address
}

// Address returns the account's deposit address, deriving and caching it
// on first use.
func (d *DepositAddresser) Address(account AccountID) (string, error) {
	if addr, ok := d.cache[account.key()]; ok {
		return addr, nil
	}

	// Domain-separate the three inputs so (seed, principal, subaccount)
	// triples can never collide across length boundaries.
	h := sha256.New()
	h.Write([]byte("vaultd/deposit/v1"))
	owner := account.Owner.Bytes()
	h.Write([]byte{byte(len(owner))})
	h.Write(owner)
	h.Write(account.Subaccount)
	h.Write(d.seed)
	digest := h.Sum(nil)

	witness, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(digest), d.chainParams)
	if err != nil {
		return "", fmt.Errorf("deriving deposit address for %s: %w", account, err)
	}
	addr := witness.EncodeAddress()
	d.cache[account.key()] = addr
	return addr, nil
}
