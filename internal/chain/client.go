package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coursepass/internal/models"
)

// Client is the blockchain execution environment consumed by the engine.
// Reads are synchronous; writes return a pending transaction hash which must
// be confirmed through WaitForReceipt before dependent logic proceeds.
type Client interface {
	GetCourse(ctx context.Context, courseID string) (*CourseConfig, error)
	GetPassState(ctx context.Context, courseID, account string) (*PassState, error)
	CanTransfer(ctx context.Context, courseID, account string) (*TransferStatus, error)
	BalanceOf(ctx context.Context, account, courseID string) (int64, error)
	IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error)
	GetActiveListings(ctx context.Context, courseID string) ([]*Listing, error)

	RegisterCourse(ctx context.Context, from string, params RegisterCourseParams) (string, error)
	PurchasePrimary(ctx context.Context, from, courseID string, maxPrice decimal.Decimal) (string, error)
	RenewPass(ctx context.Context, from, courseID string, maxPrice decimal.Decimal) (string, error)
	CreateListing(ctx context.Context, from, courseID string, price decimal.Decimal, duration int64) (string, error)
	CancelListing(ctx context.Context, from, courseID string) (string, error)
	BuyListing(ctx context.Context, from, courseID, seller string, maxPrice decimal.Decimal) (string, error)
	SetApprovalForAll(ctx context.Context, from, operator string, approved bool) (string, error)

	GetReceipt(ctx context.Context, txHash string) (*Receipt, error)
	WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

// Addresses holds the deployed contract addresses the client calls into.
type Addresses struct {
	Registrar    string
	Marketplace  string
	Membership   string
	PaymentToken string
}

type rpcClient struct {
	baseURL      string
	addrs        Addresses
	http         *http.Client
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Option tweaks the client construction.
type Option func(*rpcClient)

// WithPollInterval sets the receipt polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *rpcClient) { c.pollInterval = d }
}

// WithWaitTimeout bounds how long WaitForReceipt blocks.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *rpcClient) { c.waitTimeout = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *rpcClient) { c.http = h }
}

// NewClient creates a JSON-RPC chain client.
func NewClient(baseURL string, addrs Addresses, opts ...Option) Client {
	c := &rpcClient{
		baseURL:      baseURL,
		addrs:        addrs,
		http:         &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
		waitTimeout:  2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *rpcClient) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, &models.ChainError{Op: method, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &models.ChainError{Op: method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &models.ChainError{Op: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.ChainError{Op: method, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.ChainError{Op: method, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)}
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &models.ChainError{Op: method, Err: err}
	}
	if decoded.Error != nil {
		return nil, mapRevert(method, decoded.Error)
	}
	return decoded.Result, nil
}

// mapRevert classifies a chain-side rejection once, at the boundary, so call
// sites never pattern-match revert strings themselves.
func mapRevert(op string, rpcErr *rpcError) error {
	msg := strings.ToLower(rpcErr.Message)
	switch {
	case strings.Contains(msg, "unregistered"), strings.Contains(msg, "not registered"), strings.Contains(msg, "unknown course"):
		return models.ErrCourseNotFound
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already exists"):
		return models.ErrAlreadyRegistered
	case strings.Contains(msg, "cooldown"):
		var data struct {
			AvailableAt int64 `json:"available_at"`
		}
		if len(rpcErr.Data) > 0 {
			_ = json.Unmarshal(rpcErr.Data, &data)
		}
		return models.NewCooldownActiveError(models.NormalizeEpochMillis(data.AvailableAt))
	case strings.Contains(msg, "allowance"), strings.Contains(msg, "insufficient balance"):
		return &models.PaymentError{Msg: rpcErr.Message}
	case strings.Contains(msg, "listing"):
		if strings.Contains(msg, "not found") || strings.Contains(msg, "inactive") {
			return models.ErrListingNotFound
		}
		return &models.OnchainStateError{Reason: rpcErr.Message}
	default:
		return &models.OnchainStateError{Reason: fmt.Sprintf("%s reverted: %s", op, rpcErr.Message)}
	}
}

// positional unpacks a tuple-encoded result into its raw elements. Some node
// versions return named structs, others positional arrays depending on the
// ABI encoder; every decoder below accepts both.
func positional(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

func unpack(elems []json.RawMessage, dests ...interface{}) error {
	if len(elems) < len(dests) {
		return fmt.Errorf("tuple has %d elements, want %d", len(elems), len(dests))
	}
	for i, dst := range dests {
		if err := json.Unmarshal(elems[i], dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *rpcClient) GetCourse(ctx context.Context, courseID string) (*CourseConfig, error) {
	raw, err := c.call(ctx, "course_getCourse", map[string]interface{}{
		"contract":  c.addrs.Registrar,
		"course_id": courseID,
	})
	if err != nil {
		return nil, err
	}
	return decodeCourseConfig(courseID, raw)
}

func decodeCourseConfig(courseID string, raw json.RawMessage) (*CourseConfig, error) {
	cfg := &CourseConfig{CourseID: courseID}
	if elems, ok := positional(raw); ok {
		if err := unpack(elems, &cfg.PriceUSDC, &cfg.Duration, &cfg.TransferCooldown, &cfg.Splitter, &cfg.Creator, &cfg.Recipients, &cfg.SharesBps); err != nil {
			return nil, &models.ChainError{Op: "course_getCourse", Err: err}
		}
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, &models.ChainError{Op: "course_getCourse", Err: err}
	}
	cfg.CourseID = courseID
	return cfg, nil
}

func (c *rpcClient) GetPassState(ctx context.Context, courseID, account string) (*PassState, error) {
	raw, err := c.call(ctx, "pass_getPassState", map[string]interface{}{
		"contract":  c.addrs.Membership,
		"course_id": courseID,
		"account":   account,
	})
	if err != nil {
		return nil, err
	}
	return decodePassState(raw)
}

func decodePassState(raw json.RawMessage) (*PassState, error) {
	state := &PassState{}
	if elems, ok := positional(raw); ok {
		if err := unpack(elems, &state.ExpiresAt, &state.CooldownEndsAt); err != nil {
			return nil, &models.ChainError{Op: "pass_getPassState", Err: err}
		}
	} else if err := json.Unmarshal(raw, state); err != nil {
		return nil, &models.ChainError{Op: "pass_getPassState", Err: err}
	}
	state.ExpiresAt = models.NormalizeEpochMillis(state.ExpiresAt)
	state.CooldownEndsAt = models.NormalizeEpochMillis(state.CooldownEndsAt)
	return state, nil
}

func (c *rpcClient) CanTransfer(ctx context.Context, courseID, account string) (*TransferStatus, error) {
	raw, err := c.call(ctx, "pass_canTransfer", map[string]interface{}{
		"contract":  c.addrs.Membership,
		"course_id": courseID,
		"account":   account,
	})
	if err != nil {
		return nil, err
	}
	return decodeTransferStatus(raw)
}

func decodeTransferStatus(raw json.RawMessage) (*TransferStatus, error) {
	status := &TransferStatus{}
	if elems, ok := positional(raw); ok {
		if err := unpack(elems, &status.Eligible, &status.AvailableAt, &status.ExpiresAt); err != nil {
			return nil, &models.ChainError{Op: "pass_canTransfer", Err: err}
		}
	} else if err := json.Unmarshal(raw, status); err != nil {
		return nil, &models.ChainError{Op: "pass_canTransfer", Err: err}
	}
	status.AvailableAt = models.NormalizeEpochMillis(status.AvailableAt)
	status.ExpiresAt = models.NormalizeEpochMillis(status.ExpiresAt)
	return status, nil
}

func (c *rpcClient) BalanceOf(ctx context.Context, account, courseID string) (int64, error) {
	raw, err := c.call(ctx, "pass_balanceOf", map[string]interface{}{
		"contract":  c.addrs.Membership,
		"account":   account,
		"course_id": courseID,
	})
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := json.Unmarshal(raw, &balance); err != nil {
		return 0, &models.ChainError{Op: "pass_balanceOf", Err: err}
	}
	return balance, nil
}

func (c *rpcClient) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	raw, err := c.call(ctx, "pass_isApprovedForAll", map[string]interface{}{
		"contract": c.addrs.Membership,
		"owner":    owner,
		"operator": operator,
	})
	if err != nil {
		return false, err
	}
	var approved bool
	if err := json.Unmarshal(raw, &approved); err != nil {
		return false, &models.ChainError{Op: "pass_isApprovedForAll", Err: err}
	}
	return approved, nil
}

func (c *rpcClient) GetActiveListings(ctx context.Context, courseID string) ([]*Listing, error) {
	raw, err := c.call(ctx, "market_getActiveListings", map[string]interface{}{
		"contract":  c.addrs.Marketplace,
		"course_id": courseID,
	})
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &models.ChainError{Op: "market_getActiveListings", Err: err}
	}
	listings := make([]*Listing, 0, len(rows))
	for _, row := range rows {
		listing, err := decodeListing(row)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func decodeListing(raw json.RawMessage) (*Listing, error) {
	listing := &Listing{}
	if elems, ok := positional(raw); ok {
		if err := unpack(elems, &listing.Seller, &listing.PriceUSDC, &listing.ListedAt, &listing.ExpiresAt, &listing.Active); err != nil {
			return nil, &models.ChainError{Op: "market_getActiveListings", Err: err}
		}
	} else if err := json.Unmarshal(raw, listing); err != nil {
		return nil, &models.ChainError{Op: "market_getActiveListings", Err: err}
	}
	listing.ListedAt = models.NormalizeEpochMillis(listing.ListedAt)
	if listing.ExpiresAt != 0 {
		listing.ExpiresAt = models.NormalizeEpochMillis(listing.ExpiresAt)
	}
	return listing, nil
}

func (c *rpcClient) submit(ctx context.Context, method string, params map[string]interface{}) (string, error) {
	raw, err := c.call(ctx, method, params)
	if err != nil {
		return "", err
	}
	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", &models.ChainError{Op: method, Err: err}
	}
	return txHash, nil
}

func (c *rpcClient) RegisterCourse(ctx context.Context, from string, params RegisterCourseParams) (string, error) {
	return c.submit(ctx, "course_registerCourse", map[string]interface{}{
		"contract":          c.addrs.Registrar,
		"from":              from,
		"course_id":         params.CourseID,
		"price_usdc":        params.PriceUSDC,
		"recipients":        params.Recipients,
		"shares_bps":        params.SharesBps,
		"duration":          params.Duration,
		"transfer_cooldown": params.TransferCooldown,
		"treasury":          params.Treasury,
		"platform_fee_bps":  params.PlatformFeeBps,
	})
}

func (c *rpcClient) PurchasePrimary(ctx context.Context, from, courseID string, maxPrice decimal.Decimal) (string, error) {
	return c.submit(ctx, "market_purchasePrimary", map[string]interface{}{
		"contract":  c.addrs.Marketplace,
		"from":      from,
		"course_id": courseID,
		"max_price": maxPrice,
	})
}

func (c *rpcClient) RenewPass(ctx context.Context, from, courseID string, maxPrice decimal.Decimal) (string, error) {
	return c.submit(ctx, "market_renew", map[string]interface{}{
		"contract":  c.addrs.Marketplace,
		"from":      from,
		"course_id": courseID,
		"max_price": maxPrice,
	})
}

func (c *rpcClient) CreateListing(ctx context.Context, from, courseID string, price decimal.Decimal, duration int64) (string, error) {
	return c.submit(ctx, "market_createListing", map[string]interface{}{
		"contract":  c.addrs.Marketplace,
		"from":      from,
		"course_id": courseID,
		"price":     price,
		"duration":  duration,
	})
}

func (c *rpcClient) CancelListing(ctx context.Context, from, courseID string) (string, error) {
	return c.submit(ctx, "market_cancelListing", map[string]interface{}{
		"contract":  c.addrs.Marketplace,
		"from":      from,
		"course_id": courseID,
	})
}

func (c *rpcClient) BuyListing(ctx context.Context, from, courseID, seller string, maxPrice decimal.Decimal) (string, error) {
	return c.submit(ctx, "market_buyListing", map[string]interface{}{
		"contract":  c.addrs.Marketplace,
		"from":      from,
		"course_id": courseID,
		"seller":    seller,
		"max_price": maxPrice,
	})
}

func (c *rpcClient) SetApprovalForAll(ctx context.Context, from, operator string, approved bool) (string, error) {
	return c.submit(ctx, "pass_setApprovalForAll", map[string]interface{}{
		"contract": c.addrs.Membership,
		"from":     from,
		"operator": operator,
		"approved": approved,
	})
}

func (c *rpcClient) GetReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	raw, err := c.call(ctx, "tx_getReceipt", map[string]interface{}{"tx_hash": txHash})
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{}
	if err := json.Unmarshal(raw, receipt); err != nil {
		return nil, &models.ChainError{Op: "tx_getReceipt", Err: err}
	}
	return receipt, nil
}

// WaitForReceipt blocks until the transaction leaves the pending state or the
// wait budget runs out. Failed transactions are surfaced to the caller; the
// runtime path never resubmits.
func (c *rpcClient) WaitForReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetReceipt(ctx, txHash)
		if err == nil && receipt.Status != ReceiptPending {
			return receipt, nil
		}
		if err != nil {
			var chainErr *models.ChainError
			if !errors.As(err, &chainErr) {
				return nil, err
			}
			// transport hiccup while polling: keep waiting until the budget expires
		}

		select {
		case <-ctx.Done():
			return nil, &models.ChainError{Op: "tx_getReceipt", Err: fmt.Errorf("timed out waiting for %s: %w", txHash, ctx.Err())}
		case <-ticker.C:
		}
	}
}
