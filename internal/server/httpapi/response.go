package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guardianvault/vaultd/internal/common"
)

// Responses are a tagged union: {"ok": payload} on success and
// {"err": message} on failure, always with an appropriate status code.
type okEnvelope struct {
	OK any `json:"ok"`
}

type errEnvelope struct {
	Err string `json:"err"`
}

func sendOK(w http.ResponseWriter, payload any) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(okEnvelope{OK: payload})
}

// statusFromErr maps domain sentinels onto HTTP status codes. Anything
// unrecognized is an internal error and its detail stays server-side.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrAlreadyFinalized),
		errors.Is(err, common.ErrOwnerConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorInvalidRequest),
		errors.Is(err, common.ErrInvalidQuorum),
		errors.Is(err, common.ErrNoGuardiansConfigured),
		errors.Is(err, common.ErrInvalidRecipient),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInsufficientFunds),
		errors.Is(err, common.ErrMemoTooLarge),
		errors.Is(err, common.ErrAmountTooLow),
		errors.Is(err, common.ErrDuplicateOutpoint),
		errors.Is(err, common.ErrInvalidPrincipal),
		errors.Is(err, common.ErrInvalidSubaccount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sendErr(w http.ResponseWriter, err error) {
	status := statusFromErr(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errEnvelope{Err: message})
}
