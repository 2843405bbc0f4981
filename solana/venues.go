package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNothingToClaim is the venue's way of saying the vault holds no
// claimable fees. An expected outcome, not a failure.
var ErrNothingToClaim = errors.New("claim venue: nothing to claim")

// ErrTxFailed marks a transaction the chain rejected or that failed
// during execution, as opposed to a transport-level error.
var ErrTxFailed = errors.New("transaction failed")

// IsSlippageExceeded reports whether a swap failure was caused by the
// price moving past the supplied tolerance. Only these failures
// justify retrying with a wider tolerance.
func IsSlippageExceeded(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "slippage") ||
		strings.Contains(msg, "custom program error: 0x1771")
}

type venueResponse struct {
	Transaction string `json:"transaction"` // base64 serialized unsigned tx
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

// ClaimVenue builds fee-claim transactions for the operator. The venue
// returns a serialized unsigned transaction which the caller signs and
// submits itself.
type ClaimVenue struct {
	baseURL string
	http    *http.Client
}

func NewClaimVenue(baseURL string, httpClient *http.Client) *ClaimVenue {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClaimVenue{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BuildClaimTransaction requests an unsigned claim transaction for the
// operator's vault.
func (v *ClaimVenue) BuildClaimTransaction(ctx context.Context, operator PublicKey) ([]byte, error) {
	payload := map[string]string{
		"action":    "collectCreatorFee",
		"publicKey": operator.String(),
	}
	return postVenue(ctx, v.http, v.baseURL+"/api/trade-local", payload)
}

// SwapVenue builds swap transactions. Same sign-and-submit contract as
// the claim venue.
type SwapVenue struct {
	baseURL string
	http    *http.Client
}

func NewSwapVenue(baseURL string, httpClient *http.Client) *SwapVenue {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SwapVenue{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BuildBuyTransaction requests an unsigned buy of the target mint,
// spending lamports of native currency at the given slippage
// tolerance.
func (v *SwapVenue) BuildBuyTransaction(ctx context.Context, operator PublicKey, mint string, lamports uint64, slippagePercent int) ([]byte, error) {
	payload := map[string]any{
		"action":           "buy",
		"publicKey":        operator.String(),
		"mint":             mint,
		"amount":           lamports,
		"denominatedInSol": true,
		"slippage":         slippagePercent,
	}
	return postVenue(ctx, v.http, v.baseURL+"/api/trade-local", payload)
}

func postVenue(ctx context.Context, client *http.Client, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal venue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build venue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read venue response: %w", err)
	}

	var decoded venueResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("venue returned malformed response (%d): %s", resp.StatusCode, string(raw))
	}

	if decoded.Code == "nothing_to_claim" || strings.Contains(strings.ToLower(decoded.Error), "nothing to claim") {
		return nil, ErrNothingToClaim
	}
	if resp.StatusCode != http.StatusOK || decoded.Error != "" {
		return nil, fmt.Errorf("venue rejected request (%d): %s", resp.StatusCode, decoded.Error)
	}
	if decoded.Transaction == "" {
		return nil, fmt.Errorf("venue response missing transaction")
	}

	tx, err := base64.StdEncoding.DecodeString(decoded.Transaction)
	if err != nil {
		return nil, fmt.Errorf("venue returned invalid transaction encoding: %w", err)
	}
	return tx, nil
}
