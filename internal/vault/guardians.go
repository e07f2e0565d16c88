package vault

import (
	"fmt"
	"time"

	"github.com/guardianvault/vaultd/internal/common"
)

// GuardianConfig is the ownership record of one vault: the controlling
// principal, the set of guardians entitled to approve its recovery, and
// the approval quorum. The guardian list has set semantics; the invariant
// 1 <= Quorum <= len(Guardians) holds whenever the list is non-empty.
type GuardianConfig struct {
	Owner     Principal
	Guardians []Principal
	Quorum    uint32
}

// IsGuardian reports whether p is in the guardian set.
func (c *GuardianConfig) IsGuardian(p Principal) bool {
	return containsPrincipal(c.Guardians, p)
}

// Vault is the recovery aggregate for one account: its guardian config
// and the full history of recovery requests. Request ids start at 1 and
// are never reused.
type Vault struct {
	Config         GuardianConfig
	NextRecoveryID uint64
	Requests       []*RecoveryRequest
	CreatedAt      time.Time
}

// NewVault creates a vault controlled by owner with no guardians
// configured yet.
func NewVault(owner Principal, now time.Time) *Vault {
	return &Vault{
		Config:         GuardianConfig{Owner: owner},
		NextRecoveryID: 1,
		CreatedAt:      now,
	}
}

// validateGuardianSet checks a candidate (guardians, quorum) pair against
// the registry rules: quorum in [1, len(guardians)], no duplicates, and
// the owner may not guard their own vault.
func validateGuardianSet(owner Principal, guardians []Principal, quorum uint32) error {
	if len(guardians) == 0 {
		return fmt.Errorf("%w: empty guardian set", common.ErrInvalidQuorum)
	}
	if quorum == 0 || quorum > uint32(len(guardians)) {
		return fmt.Errorf("%w: quorum %d with %d guardians", common.ErrInvalidQuorum, quorum, len(guardians))
	}
	seen := make(map[Principal]struct{}, len(guardians))
	for _, g := range guardians {
		if g.IsZero() {
			return fmt.Errorf("%w: empty guardian principal", common.ErrInvalidQuorum)
		}
		if g == owner {
			return fmt.Errorf("%w: owner may not be a guardian", common.ErrInvalidQuorum)
		}
		if _, dup := seen[g]; dup {
			return fmt.Errorf("%w: duplicate guardian %s", common.ErrInvalidQuorum, g)
		}
		seen[g] = struct{}{}
	}
	return nil
}

// SetGuardians replaces the guardian set and quorum atomically. Only the
// current owner may call it. A successful replace invalidates any Pending
// recovery request: approvals are scoped to the guardian set that granted
// them, so in-flight requests transition to Rejected.
func (v *Vault) SetGuardians(caller Principal, guardians []Principal, quorum uint32) error {
	if caller != v.Config.Owner {
		return fmt.Errorf("%w: only owner can set guardians", common.ErrorUnauthorized)
	}
	if err := validateGuardianSet(v.Config.Owner, guardians, quorum); err != nil {
		return err
	}

	v.Config.Guardians = append([]Principal(nil), guardians...)
	v.Config.Quorum = quorum
	if req := v.pendingRequest(); req != nil {
		req.State = RequestRejected
	}
	return nil
}

// Guardians returns a snapshot of the guardian config.
func (v *Vault) Guardians() GuardianConfig {
	return GuardianConfig{
		Owner:     v.Config.Owner,
		Guardians: append([]Principal(nil), v.Config.Guardians...),
		Quorum:    v.Config.Quorum,
	}
}
