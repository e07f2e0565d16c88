package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guardianvault/vaultd/internal/common"
)

// RESTClient talks to the vault server's JSON API. One instance carries
// one session token.
type RESTClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// call performs one API request and unmarshals the ok-envelope payload
// into out (when out is non-nil).
func (c *RESTClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		req.Header.Set(common.AccessTokenHeaderName, c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Err string `json:"err"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Err == "" {
			envelope.Err = resp.Status
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, envelope.Err)
		}
		return fmt.Errorf("server error: %s", envelope.Err)
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		OK json.RawMessage `json:"ok"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.OK, out)
}

func (c *RESTClient) Login(ctx context.Context, principal, identitySecret string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.call(ctx, http.MethodPost, "/v1/session", map[string]string{
		"principal":       principal,
		"identity_secret": identitySecret,
	}, &resp)
	if err != nil {
		return err
	}
	c.accessToken = resp.Token
	return nil
}

func (c *RESTClient) GetGuardians(ctx context.Context) (*GuardianSet, error) {
	out := &GuardianSet{}
	if err := c.call(ctx, http.MethodGet, "/v1/guardians", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) SetGuardians(ctx context.Context, guardians []string, quorum uint32) (*GuardianSet, error) {
	out := &GuardianSet{}
	body := map[string]any{"guardians": guardians, "quorum": quorum}
	if err := c.call(ctx, http.MethodPut, "/v1/guardians", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) VaultGuardians(ctx context.Context, owner string) (*GuardianSet, error) {
	out := &GuardianSet{}
	path := "/v1/vaults/" + url.PathEscape(owner) + "/guardians"
	if err := c.call(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) RequestRecovery(ctx context.Context, owner, newOwner string) (uint64, error) {
	var resp struct {
		ID uint64 `json:"id"`
	}
	path := "/v1/vaults/" + url.PathEscape(owner) + "/recovery"
	err := c.call(ctx, http.MethodPost, path, map[string]string{"new_owner": newOwner}, &resp)
	return resp.ID, err
}

func (c *RESTClient) ApproveRecovery(ctx context.Context, owner string, id uint64) (bool, error) {
	var resp struct {
		Finalized bool `json:"finalized"`
	}
	path := "/v1/vaults/" + url.PathEscape(owner) + "/recovery/" + strconv.FormatUint(id, 10) + "/approvals"
	err := c.call(ctx, http.MethodPost, path, nil, &resp)
	return resp.Finalized, err
}

func (c *RESTClient) RecoveryStatus(ctx context.Context, owner string, id uint64) (*RecoveryRequest, error) {
	out := &RecoveryRequest{}
	path := "/v1/vaults/" + url.PathEscape(owner) + "/recovery/" + strconv.FormatUint(id, 10)
	if err := c.call(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) RecoveryRequests(ctx context.Context, owner string) ([]*RecoveryRequest, error) {
	var out []*RecoveryRequest
	path := "/v1/vaults/" + url.PathEscape(owner) + "/recovery"
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) Balance(ctx context.Context) (uint64, error) {
	var resp struct {
		Balance uint64 `json:"balance"`
	}
	err := c.call(ctx, http.MethodGet, "/v1/ckbtc/balance", nil, &resp)
	return resp.Balance, err
}

func (c *RESTClient) Fee(ctx context.Context) (uint64, error) {
	var resp struct {
		Fee uint64 `json:"fee"`
	}
	err := c.call(ctx, http.MethodGet, "/v1/ckbtc/fee", nil, &resp)
	return resp.Fee, err
}

func (c *RESTClient) Transfer(ctx context.Context, toOwner string, amount uint64, memo []byte) (uint64, error) {
	var resp struct {
		ID uint64 `json:"id"`
	}
	body := map[string]any{"to_owner": toOwner, "amount": amount}
	if len(memo) > 0 {
		body["memo"] = memo
	}
	err := c.call(ctx, http.MethodPost, "/v1/ckbtc/transfers", body, &resp)
	return resp.ID, err
}

func (c *RESTClient) Withdraw(ctx context.Context, address string, amount uint64) (uint64, error) {
	var resp struct {
		ID uint64 `json:"id"`
	}
	body := map[string]any{"address": address, "amount": amount}
	err := c.call(ctx, http.MethodPost, "/v1/ckbtc/withdrawals", body, &resp)
	return resp.ID, err
}

func (c *RESTClient) Transactions(ctx context.Context) ([]*Transaction, error) {
	var out []*Transaction
	if err := c.call(ctx, http.MethodGet, "/v1/ckbtc/transactions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) DepositAddress(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	err := c.call(ctx, http.MethodGet, "/v1/btc/deposit-address", nil, &resp)
	return resp.Address, err
}

func (c *RESTClient) Utxos(ctx context.Context) ([]*Utxo, error) {
	var out []*Utxo
	if err := c.call(ctx, http.MethodGet, "/v1/btc/utxos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) PendingUtxos(ctx context.Context) ([]*Utxo, error) {
	var out []*Utxo
	if err := c.call(ctx, http.MethodGet, "/v1/btc/utxos/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
