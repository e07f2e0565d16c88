package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gorilla/mux"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/server/models"
	"github.com/guardianvault/vaultd/internal/vault"
)

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: bad request body: %v", common.ErrorInvalidRequest, err)
	}
	return nil
}

// parseSubaccount decodes the optional hex subaccount from a request.
func parseSubaccount(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad hex", common.ErrInvalidSubaccount)
	}
	return b, nil
}

// callerAccount resolves the authenticated caller plus the subaccount
// query parameter into a ledger account.
func callerAccount(r *http.Request) (vault.AccountID, error) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		return vault.AccountID{}, err
	}
	sub, err := parseSubaccount(r.URL.Query().Get("subaccount"))
	if err != nil {
		return vault.AccountID{}, err
	}
	return vault.NewAccountID(caller, sub)
}

func pathPrincipal(r *http.Request, name string) (vault.Principal, error) {
	return vault.PrincipalFromText(mux.Vars(r)[name])
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}
	principal, err := vault.PrincipalFromText(req.Principal)
	if err != nil {
		sendErr(w, err)
		return
	}
	token, err := s.sessions.Issue(principal, req.IdentitySecret)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, sessionResponse{Token: token})
}

func guardiansPayload(cfg vault.GuardianConfig) guardiansResponse {
	resp := guardiansResponse{Owner: cfg.Owner.String(), Quorum: cfg.Quorum}
	for _, g := range cfg.Guardians {
		resp.Guardians = append(resp.Guardians, g.String())
	}
	return resp
}

func (s *Server) handleGetGuardians(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	cfg, err := s.vaults.GetGuardians(r.Context(), caller)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, guardiansPayload(cfg))
}

func (s *Server) handleSetGuardians(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	var req guardiansRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}
	guardians := make([]vault.Principal, 0, len(req.Guardians))
	for _, g := range req.Guardians {
		p, err := vault.PrincipalFromText(g)
		if err != nil {
			sendErr(w, err)
			return
		}
		guardians = append(guardians, p)
	}
	if err := s.vaults.SetGuardians(r.Context(), caller, guardians, req.Quorum); err != nil {
		sendErr(w, err)
		return
	}
	cfg, err := s.vaults.GetGuardians(r.Context(), caller)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, guardiansPayload(cfg))
}

func (s *Server) handleVaultGuardians(w http.ResponseWriter, r *http.Request) {
	owner, err := pathPrincipal(r, "owner")
	if err != nil {
		sendErr(w, err)
		return
	}
	cfg, err := s.vaults.GetGuardians(r.Context(), owner)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, guardiansPayload(cfg))
}

func (s *Server) handleRequestRecovery(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	owner, err := pathPrincipal(r, "owner")
	if err != nil {
		sendErr(w, err)
		return
	}
	var req recoveryOpenRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}
	newOwner, err := vault.PrincipalFromText(req.NewOwner)
	if err != nil {
		sendErr(w, err)
		return
	}
	id, err := s.vaults.RequestRecovery(r.Context(), owner, caller, newOwner)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, recoveryOpenResponse{ID: id})
}

func pathRequestID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad request id", common.ErrorNotFound)
	}
	return id, nil
}

func (s *Server) handleApproveRecovery(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	owner, err := pathPrincipal(r, "owner")
	if err != nil {
		sendErr(w, err)
		return
	}
	id, err := pathRequestID(r)
	if err != nil {
		sendErr(w, err)
		return
	}
	finalized, err := s.vaults.ApproveRecovery(r.Context(), owner, caller, id)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, approvalResponse{Finalized: finalized})
}

func recoveryPayload(req vault.RecoveryRequest) recoveryStatusResponse {
	resp := recoveryStatusResponse{
		ID:             req.ID,
		RequestedOwner: req.RequestedOwner.String(),
		State:          string(req.State),
		CreatedAt:      req.CreatedAt,
	}
	for _, a := range req.Approvals {
		resp.Approvals = append(resp.Approvals, a.String())
	}
	return resp
}

func (s *Server) handleRecoveryStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := pathPrincipal(r, "owner")
	if err != nil {
		sendErr(w, err)
		return
	}
	id, err := pathRequestID(r)
	if err != nil {
		sendErr(w, err)
		return
	}
	status, err := s.vaults.RecoveryStatus(r.Context(), owner, id)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, recoveryPayload(status))
}

func (s *Server) handleRecoveryRequests(w http.ResponseWriter, r *http.Request) {
	owner, err := pathPrincipal(r, "owner")
	if err != nil {
		sendErr(w, err)
		return
	}
	requests, err := s.vaults.RecoveryRequests(r.Context(), owner)
	if err != nil {
		sendErr(w, err)
		return
	}
	out := make([]recoveryStatusResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, recoveryPayload(req))
	}
	sendOK(w, out)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := callerAccount(r)
	if err != nil {
		sendErr(w, err)
		return
	}
	balance, err := s.ledger.BalanceOf(r.Context(), account)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, balanceResponse{Balance: balance})
}

func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	sendOK(w, feeResponse{Fee: s.ledger.TransferFee()})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}

	fromSub, err := parseSubaccount(req.FromSubaccount)
	if err != nil {
		sendErr(w, err)
		return
	}
	from, err := vault.NewAccountID(caller, fromSub)
	if err != nil {
		sendErr(w, err)
		return
	}

	toOwner, err := vault.PrincipalFromText(req.ToOwner)
	if err != nil {
		sendErr(w, fmt.Errorf("%w: %v", common.ErrInvalidRecipient, err))
		return
	}
	toSub, err := parseSubaccount(req.ToSubaccount)
	if err != nil {
		sendErr(w, err)
		return
	}
	to, err := vault.NewAccountID(toOwner, toSub)
	if err != nil {
		sendErr(w, err)
		return
	}

	id, err := s.ledger.Transfer(r.Context(), from, to, req.Amount, req.Fee, req.Memo)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, transferResponse{ID: id})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	var req withdrawalRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}
	fromSub, err := parseSubaccount(req.FromSubaccount)
	if err != nil {
		sendErr(w, err)
		return
	}
	from, err := vault.NewAccountID(caller, fromSub)
	if err != nil {
		sendErr(w, err)
		return
	}
	id, err := s.ledger.Withdraw(r.Context(), from, req.Address, req.Amount)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, transferResponse{ID: id})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	caller, err := callerPrincipal(r.Context())
	if err != nil {
		sendErr(w, err)
		return
	}
	rows, err := s.ledger.Transactions(r.Context(), caller)
	if err != nil {
		sendErr(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, transactionResponse{
			ID:             row.ID,
			Kind:           row.Kind,
			FromOwner:      row.FromOwner,
			FromSubaccount: hex.EncodeToString(row.FromSubaccount),
			ToOwner:        row.ToOwner,
			ToSubaccount:   hex.EncodeToString(row.ToSubaccount),
			Amount:         row.Amount,
			Fee:            row.Fee,
			Memo:           row.Memo,
			BtcAddress:     row.BtcAddress,
			CreatedAt:      row.CreatedAt,
		})
	}
	sendOK(w, out)
}

func (s *Server) handleDepositAddress(w http.ResponseWriter, r *http.Request) {
	account, err := callerAccount(r)
	if err != nil {
		sendErr(w, err)
		return
	}
	address, err := s.utxos.DepositAddress(r.Context(), account)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, depositAddressResponse{Address: address})
}

func utxoPayload(rows []*models.Utxo) ([]utxoResponse, error) {
	out := make([]utxoResponse, 0, len(rows))
	for _, row := range rows {
		hash, err := chainhash.NewHash(row.TxID)
		if err != nil {
			return nil, err
		}
		out = append(out, utxoResponse{
			TxID:          hash.String(),
			Vout:          row.Vout,
			Value:         row.Value,
			Confirmations: row.Confirmations,
			Height:        row.Height,
			State:         row.State,
		})
	}
	return out, nil
}

func (s *Server) handleUtxos(w http.ResponseWriter, r *http.Request) {
	account, err := callerAccount(r)
	if err != nil {
		sendErr(w, err)
		return
	}
	rows, err := s.utxos.Utxos(r.Context(), account)
	if err != nil {
		sendErr(w, err)
		return
	}
	payload, err := utxoPayload(rows)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, payload)
}

func (s *Server) handlePendingUtxos(w http.ResponseWriter, r *http.Request) {
	account, err := callerAccount(r)
	if err != nil {
		sendErr(w, err)
		return
	}
	rows, err := s.utxos.PendingUtxos(r.Context(), account)
	if err != nil {
		sendErr(w, err)
		return
	}
	payload, err := utxoPayload(rows)
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, payload)
}

func (s *Server) handleUtxoReport(w http.ResponseWriter, r *http.Request) {
	var req utxoReportRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}
	owner, err := vault.PrincipalFromText(req.Owner)
	if err != nil {
		sendErr(w, err)
		return
	}
	sub, err := parseSubaccount(req.Subaccount)
	if err != nil {
		sendErr(w, err)
		return
	}
	account, err := vault.NewAccountID(owner, sub)
	if err != nil {
		sendErr(w, err)
		return
	}
	op, err := vault.NewOutPoint(req.TxID, req.Vout)
	if err != nil {
		sendErr(w, fmt.Errorf("%w: %v", common.ErrInvalidRecipient, err))
		return
	}

	credited, err := s.utxos.ApplyUtxoReport(r.Context(), account, vault.UtxoReport{
		OutPoint:      op,
		Value:         req.Value,
		Confirmations: req.Confirmations,
		Height:        req.Height,
	})
	if err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, utxoReportResponse{Credited: credited})
}

func (s *Server) handleUtxoSpent(w http.ResponseWriter, r *http.Request) {
	var req utxoSpentRequest
	if err := decodeBody(r, &req); err != nil {
		sendErr(w, err)
		return
	}
	op, err := vault.NewOutPoint(req.TxID, req.Vout)
	if err != nil {
		sendErr(w, fmt.Errorf("%w: %v", common.ErrInvalidRecipient, err))
		return
	}
	if err := s.utxos.MarkSpent(r.Context(), op); err != nil {
		sendErr(w, err)
		return
	}
	sendOK(w, struct{}{})
}
