package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const (
	testToken   = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	testAccount = "0x28C6c06298d514Db089934071355E5743bf21d60"

	selectorBalanceOf = "0x70a08231"
	selectorDecimals  = "0x313ce567"
)

// newRPCStub serves a minimal JSON-RPC node answering eth_call for the
// balanceOf and decimals selectors.
func newRPCStub(t *testing.T, balance *big.Int, decimals uint8) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("invalid rpc request: %v", err)
			return
		}
		if req.Method != "eth_call" {
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}

		var callObj map[string]string
		if err := json.Unmarshal(req.Params[0], &callObj); err != nil {
			t.Errorf("invalid call object: %v", err)
			return
		}
		data := callObj["input"]
		if data == "" {
			data = callObj["data"]
		}

		var result string
		switch {
		case strings.HasPrefix(data, selectorBalanceOf):
			result = fmt.Sprintf("0x%064x", balance)
		case strings.HasPrefix(data, selectorDecimals):
			result = fmt.Sprintf("0x%064x", decimals)
		default:
			http.Error(w, "unexpected selector", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"%s"}`, req.ID, result)
	}))
}

func TestReader_BalanceOf(t *testing.T) {
	srv := newRPCStub(t, big.NewInt(5000000), 6)
	defer srv.Close()

	reader, err := NewReader(Config{RPCURLs: []string{srv.URL}, Timeout: 2 * time.Second}, testToken)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	balance, err := reader.BalanceOf(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("BalanceOf failed: %v", err)
	}
	if balance.Cmp(big.NewInt(5000000)) != 0 {
		t.Errorf("Expected balance 5000000, got %s", balance)
	}
}

func TestReader_Decimals(t *testing.T) {
	srv := newRPCStub(t, big.NewInt(0), 6)
	defer srv.Close()

	reader, err := NewReader(Config{RPCURLs: []string{srv.URL}, Timeout: 2 * time.Second}, testToken)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	decimals, err := reader.Decimals(context.Background())
	if err != nil {
		t.Fatalf("Decimals failed: %v", err)
	}
	if decimals != 6 {
		t.Errorf("Expected 6 decimals, got %d", decimals)
	}
}

func TestReader_Failover(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer dead.Close()

	good := newRPCStub(t, big.NewInt(123), 6)
	defer good.Close()

	reader, err := NewReader(
		Config{RPCURLs: []string{dead.URL, good.URL}, Timeout: 2 * time.Second},
		testToken,
	)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	balance, err := reader.BalanceOf(context.Background(), testAccount)
	if err != nil {
		t.Fatalf("BalanceOf should fail over to the healthy endpoint: %v", err)
	}
	if balance.Cmp(big.NewInt(123)) != 0 {
		t.Errorf("Expected balance 123, got %s", balance)
	}

	// After a failure the healthy endpoint becomes the primary.
	if reader.primary != 1 {
		t.Errorf("Expected primary rotated to index 1, got %d", reader.primary)
	}
}

func TestReader_RejectsInvalidAddresses(t *testing.T) {
	if _, err := NewReader(Config{RPCURLs: []string{"http://localhost:1"}}, "not-an-address"); err == nil {
		t.Error("Expected error for invalid token address")
	}

	reader, err := NewReader(Config{RPCURLs: []string{"http://localhost:1"}}, testToken)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.BalanceOf(context.Background(), "bogus"); err == nil {
		t.Error("Expected error for invalid account address")
	}
}
