package notify

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

func testEvent() *domain.PaymentEvent {
	router := domain.NewTrackedRouter("0xAAaa000000000000000000000000000000000001", "Alpha")
	detectedAt := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	return domain.NewPaymentEvent(router, big.NewInt(10000000), big.NewInt(15000000), detectedAt)
}

func TestGatewayNotifier_PostsEnvelope(t *testing.T) {
	var got envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewGatewayNotifier(srv.URL, 6)
	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if got.Name != "x402-payment" || got.WakeMode != "now" {
		t.Errorf("Unexpected envelope header: name=%q wakeMode=%q", got.Name, got.WakeMode)
	}
	if got.Data.RouterName != "Alpha" {
		t.Errorf("Expected routerName Alpha, got %q", got.Data.RouterName)
	}
	if got.Data.PreviousBalance != "10.00" || got.Data.NewBalance != "15.00" || got.Data.Increase != "5.00" {
		t.Errorf("Unexpected amounts: prev=%q new=%q inc=%q",
			got.Data.PreviousBalance, got.Data.NewBalance, got.Data.Increase)
	}
	if got.Data.DetectedAt != "2025-01-15T12:00:00.000Z" {
		t.Errorf("Unexpected detectedAt %q", got.Data.DetectedAt)
	}
}

func TestGatewayNotifier_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewGatewayNotifier(srv.URL, 6)
	if err := n.Notify(context.Background(), testEvent()); err == nil {
		t.Error("Expected error on HTTP 500")
	}
}

func TestGatewayNotifier_NetworkErrorIsError(t *testing.T) {
	n := NewGatewayNotifier("http://127.0.0.1:1/hooks/agent", 6)
	if err := n.Notify(context.Background(), testEvent()); err == nil {
		t.Error("Expected error on connection failure")
	}
}

func TestNoopNotifier(t *testing.T) {
	if err := (NoopNotifier{}).Notify(context.Background(), testEvent()); err != nil {
		t.Errorf("NoopNotifier should never fail: %v", err)
	}
}
