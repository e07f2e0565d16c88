package vault

import (
	"encoding/hex"
	"fmt"

	"github.com/guardianvault/vaultd/internal/common"
)

// SubaccountLen is the fixed length of a non-default subaccount.
const SubaccountLen = 32

// AccountID identifies a ledger account: a principal plus an optional
// 32-byte subaccount. A nil subaccount is the principal's default account.
type AccountID struct {
	Owner      Principal
	Subaccount []byte
}

// NewAccountID validates and copies the subaccount. Subaccounts must be
// absent or exactly 32 bytes.
func NewAccountID(owner Principal, subaccount []byte) (AccountID, error) {
	if owner.IsZero() {
		return AccountID{}, common.ErrInvalidPrincipal
	}
	if len(subaccount) == 0 {
		return AccountID{Owner: owner}, nil
	}
	if len(subaccount) != SubaccountLen {
		return AccountID{}, fmt.Errorf("%w: %d bytes", common.ErrInvalidSubaccount, len(subaccount))
	}
	sub := make([]byte, SubaccountLen)
	copy(sub, subaccount)
	return AccountID{Owner: owner, Subaccount: sub}, nil
}

// DefaultAccount returns the principal's default (no-subaccount) account.
func DefaultAccount(owner Principal) AccountID {
	return AccountID{Owner: owner}
}

// key is the map key form of the account, stable across restarts.
func (a AccountID) key() string {
	return a.Owner.String() + ":" + hex.EncodeToString(a.Subaccount)
}

// Equal reports exact identity of principal and subaccount.
func (a AccountID) Equal(b AccountID) bool {
	return a.key() == b.key()
}

func (a AccountID) String() string {
	if len(a.Subaccount) == 0 {
		return a.Owner.String()
	}
	return a.Owner.String() + "." + hex.EncodeToString(a.Subaccount)
}

// DeriveSubaccount maps a principal to its reserved 32-byte subaccount:
// a length prefix followed by the raw principal bytes, zero padded.
func DeriveSubaccount(p Principal) []byte {
	sub := make([]byte, SubaccountLen)
	raw := p.Bytes()
	if len(raw) > maxPrincipalLen {
		raw = raw[:maxPrincipalLen]
	}
	sub[0] = byte(len(raw))
	copy(sub[1:], raw)
	return sub
}
