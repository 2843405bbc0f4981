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
	"strconv"
	"strings"
	"time"
)

// ErrRateLimited marks a provider 429 response. Recoverable with
// backoff; the retry policy keys off it.
var ErrRateLimited = errors.New("rpc: rate limited")

// RPCError is a structured error returned by the node itself, as
// opposed to a transport failure.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// TokenAccountBalance is one entry of the largest-accounts query. The
// address is a token account, not the wallet that controls it; the
// owner must be resolved separately before anything is paid out.
type TokenAccountBalance struct {
	Address string
	Amount  uint64
}

// Client is a minimal JSON-RPC client for the chain node.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the given RPC endpoint.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", method, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, string(b))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == 429 {
			return fmt.Errorf("%s: %w", method, ErrRateLimited)
		}
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// Balance returns the lamport balance of an account.
func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	var out struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{address}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// LatestBlockhash returns a recent blockhash for transaction building.
func (c *Client) LatestBlockhash(ctx context.Context) (Hash, error) {
	var out struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]string{"commitment": "confirmed"}}, &out); err != nil {
		return Hash{}, err
	}
	return HashFromBase58(out.Value.Blockhash)
}

// LargestTokenAccounts returns the provider's ranked largest token
// accounts for a mint, already sorted by descending balance.
func (c *Client) LargestTokenAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error) {
	var out struct {
		Value []struct {
			Address string `json:"address"`
			Amount  string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenLargestAccounts", []any{mint}, &out); err != nil {
		return nil, err
	}

	accounts := make([]TokenAccountBalance, 0, len(out.Value))
	for _, v := range out.Value {
		amount, err := strconv.ParseUint(v.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid token amount %q for %s: %w", v.Amount, v.Address, err)
		}
		accounts = append(accounts, TokenAccountBalance{Address: v.Address, Amount: amount})
	}
	return accounts, nil
}

// TokenAccountOwner resolves the wallet that controls a token account.
func (c *Client) TokenAccountOwner(ctx context.Context, account string) (string, error) {
	var out struct {
		Value *struct {
			Data struct {
				Parsed struct {
					Info struct {
						Owner string `json:"owner"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"value"`
	}
	params := []any{account, map[string]string{"encoding": "jsonParsed"}}
	if err := c.call(ctx, "getAccountInfo", params, &out); err != nil {
		return "", err
	}
	if out.Value == nil || out.Value.Data.Parsed.Info.Owner == "" {
		return "", fmt.Errorf("account %s has no resolvable owner", account)
	}
	return out.Value.Data.Parsed.Info.Owner, nil
}

// SendTransaction submits a signed serialized transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, signed []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signed)
	var signature string
	params := []any{encoded, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// WaitForConfirmation polls the signature status until the transaction
// confirms, fails on chain, or the timeout elapses. A transaction that
// never confirms is treated as failed, not hung.
func (c *Client) WaitForConfirmation(ctx context.Context, signature string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed within %s: %w", signature, timeout, ctx.Err())
		case <-ticker.C:
		}

		var out struct {
			Value []*struct {
				ConfirmationStatus string          `json:"confirmationStatus"`
				Err                json.RawMessage `json:"err"`
			} `json:"value"`
		}
		params := []any{[]string{signature}}
		if err := c.call(ctx, "getSignatureStatuses", params, &out); err != nil {
			if errors.Is(err, ErrRateLimited) {
				continue
			}
			return err
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}
		status := out.Value[0]
		if status.Err != nil && string(status.Err) != "null" {
			return fmt.Errorf("transaction %s failed on chain: %s", signature, string(status.Err))
		}
		switch status.ConfirmationStatus {
		case "confirmed", "finalized":
			return nil
		}
	}
}
