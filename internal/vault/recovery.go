package vault

import (
	"fmt"
	"time"

	"github.com/guardianvault/vaultd/internal/common"
)

// RequestState is the lifecycle state of a recovery request. Pending is
// the only non-terminal state.
type RequestState string

const (
	RequestPending   RequestState = "pending"
	RequestFinalized RequestState = "finalized"
	RequestRejected  RequestState = "rejected"
	RequestExpired   RequestState = "expired"
)

// Terminal reports whether no further transition can leave s.
func (s RequestState) Terminal() bool {
	return s == RequestFinalized || s == RequestRejected || s == RequestExpired
}

// RecoveryRequest tracks one attempt to move vault ownership to a new
// principal. Approvals is a set: re-approval by the same guardian is a
// no-op and never double-counts toward quorum.
type RecoveryRequest struct {
	ID             uint64
	RequestedOwner Principal
	Approvals      []Principal
	State          RequestState
	CreatedAt      time.Time
}

func (r *RecoveryRequest) snapshot() RecoveryRequest {
	cp := *r
	cp.Approvals = append([]Principal(nil), r.Approvals...)
	return cp
}

// pendingRequest returns the vault's Pending request, if any. At most one
// exists at a time.
func (v *Vault) pendingRequest() *RecoveryRequest {
	for _, req := range v.Requests {
		if req.State == RequestPending {
			return req
		}
	}
	return nil
}

// RequestRecovery opens a new recovery request proposing newOwner as the
// vault's controlling principal. Only the current owner or a configured
// guardian may open one. If a request is already Pending it is superseded:
// marked Rejected before the new request is created. Returns the fresh
// request id.
func (v *Vault) RequestRecovery(caller, newOwner Principal, now time.Time) (uint64, error) {
	if len(v.Config.Guardians) == 0 {
		return 0, common.ErrNoGuardiansConfigured
	}
	if caller != v.Config.Owner && !v.Config.IsGuardian(caller) {
		return 0, fmt.Errorf("%w: only owner or guardian may open recovery", common.ErrorUnauthorized)
	}
	if newOwner.IsZero() {
		return 0, common.ErrInvalidRecipient
	}

	if prior := v.pendingRequest(); prior != nil {
		prior.State = RequestRejected
	}

	id := v.NextRecoveryID
	v.NextRecoveryID++
	v.Requests = append(v.Requests, &RecoveryRequest{
		ID:             id,
		RequestedOwner: newOwner,
		State:          RequestPending,
		CreatedAt:      now,
	})
	return id, nil
}

// ApproveRecovery records caller's approval on the request with the given
// id. It returns true exactly when this call crosses the quorum threshold,
// at which point ownership transfers to the requested owner and the
// request finalizes, atomically. Approvals are idempotent per guardian.
func (v *Vault) ApproveRecovery(caller Principal, id uint64) (bool, error) {
	req := v.findRequest(id)
	if req == nil {
		return false, fmt.Errorf("%w: recovery request %d", common.ErrorNotFound, id)
	}
	if req.State.Terminal() {
		return false, fmt.Errorf("%w: recovery request %d is %s", common.ErrAlreadyFinalized, id, req.State)
	}
	if !v.Config.IsGuardian(caller) {
		return false, fmt.Errorf("%w: only guardian may approve", common.ErrorUnauthorized)
	}

	if !containsPrincipal(req.Approvals, caller) {
		req.Approvals = append(req.Approvals, caller)
	}
	if uint32(len(req.Approvals)) < v.Config.Quorum {
		return false, nil
	}

	v.Config.Owner = req.RequestedOwner
	req.State = RequestFinalized
	return true, nil
}

// RecoveryStatus returns a snapshot of the request with the given id.
func (v *Vault) RecoveryStatus(id uint64) (RecoveryRequest, error) {
	req := v.findRequest(id)
	if req == nil {
		return RecoveryRequest{}, fmt.Errorf("%w: recovery request %d", common.ErrorNotFound, id)
	}
	return req.snapshot(), nil
}

// RecoveryRequests returns snapshots of all requests, oldest first.
func (v *Vault) RecoveryRequests() []RecoveryRequest {
	out := make([]RecoveryRequest, 0, len(v.Requests))
	for _, req := range v.Requests {
		out = append(out, req.snapshot())
	}
	return out
}

// ExpireRequests transitions Pending requests older than ttl to Expired
// and reports how many it closed. A zero ttl disables expiry.
func (v *Vault) ExpireRequests(ttl time.Duration, now time.Time) int {
	if ttl <= 0 {
		return 0
	}
	expired := 0
	for _, req := range v.Requests {
		if req.State == RequestPending && now.Sub(req.CreatedAt) >= ttl {
			req.State = RequestExpired
			expired++
		}
	}
	return expired
}

func (v *Vault) findRequest(id uint64) *RecoveryRequest {
	for _, req := range v.Requests {
		if req.ID == id {
			return req
		}
	}
	return nil
}
