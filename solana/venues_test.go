package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimVenue_BuildClaimTransaction(t *testing.T) {
	rawTx := []byte{0xde, 0xad, 0xbe, 0xef}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trade-local", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "collectCreatorFee", payload["action"])
		assert.NotEmpty(t, payload["publicKey"])

		json.NewEncoder(w).Encode(map[string]string{
			"transaction": base64.StdEncoding.EncodeToString(rawTx),
		})
	}))
	defer server.Close()

	venue := NewClaimVenue(server.URL, nil)
	tx, err := venue.BuildClaimTransaction(context.Background(), randomKey(t))
	require.NoError(t, err)
	assert.Equal(t, rawTx, tx)
}

func TestClaimVenue_NothingToClaim(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"code field", `{"code":"nothing_to_claim"}`},
		{"error message", `{"error":"Nothing to claim for this creator"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			venue := NewClaimVenue(server.URL, nil)
			_, err := venue.BuildClaimTransaction(context.Background(), randomKey(t))
			assert.True(t, errors.Is(err, ErrNothingToClaim))
		})
	}
}

func TestSwapVenue_BuildBuyTransaction(t *testing.T) {
	rawTx := []byte{0x01, 0x02}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "buy", payload["action"])
		assert.Equal(t, "SomeMint", payload["mint"])
		assert.Equal(t, float64(500_000_000), payload["amount"])
		assert.Equal(t, true, payload["denominatedInSol"])
		assert.Equal(t, float64(15), payload["slippage"])

		json.NewEncoder(w).Encode(map[string]string{
			"transaction": base64.StdEncoding.EncodeToString(rawTx),
		})
	}))
	defer server.Close()

	venue := NewSwapVenue(server.URL, nil)
	tx, err := venue.BuildBuyTransaction(context.Background(), randomKey(t), "SomeMint", 500_000_000, 15)
	require.NoError(t, err)
	assert.Equal(t, rawTx, tx)
}

func TestVenue_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	venue := NewSwapVenue(server.URL, nil)
	_, err := venue.BuildBuyTransaction(context.Background(), randomKey(t), "SomeMint", 1, 15)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestVenue_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"insufficient liquidity"}`))
	}))
	defer server.Close()

	venue := NewSwapVenue(server.URL, nil)
	_, err := venue.BuildBuyTransaction(context.Background(), randomKey(t), "SomeMint", 1, 15)
	assert.ErrorContains(t, err, "insufficient liquidity")
}

func TestVenue_MissingTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	venue := NewClaimVenue(server.URL, nil)
	_, err := venue.BuildClaimTransaction(context.Background(), randomKey(t))
	assert.ErrorContains(t, err, "missing transaction")
}

func TestVenue_InvalidBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transaction":"not base64!!!"}`))
	}))
	defer server.Close()

	venue := NewClaimVenue(server.URL, nil)
	_, err := venue.BuildClaimTransaction(context.Background(), randomKey(t))
	assert.ErrorContains(t, err, "invalid transaction encoding")
}

func TestIsSlippageExceeded(t *testing.T) {
	assert.True(t, IsSlippageExceeded(errors.New("venue rejected request (400): slippage tolerance exceeded")))
	assert.True(t, IsSlippageExceeded(errors.New("transaction failed on chain: custom program error: 0x1771")))
	assert.False(t, IsSlippageExceeded(errors.New("insufficient funds")))
	assert.False(t, IsSlippageExceeded(nil))
}
