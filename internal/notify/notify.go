package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
	"github.com/Aurracloud/agentic-x402/internal/core/token"
)

// Notifier delivers detected payments to the agent runtime. Delivery is
// best-effort: errors are reported to the caller for accounting but never
// retried.
type Notifier interface {
	Notify(ctx context.Context, event *domain.PaymentEvent) error
}

// HookURL returns the agent gateway hook endpoint for a local gateway port.
func HookURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/hooks/agent", port)
}

// GatewayNotifier wakes the agent runtime by posting the payment to its
// gateway hook.
type GatewayNotifier struct {
	url      string
	decimals int
	client   *http.Client
	log      *slog.Logger
}

// NewGatewayNotifier creates a notifier posting to the given hook URL.
// Amounts in the payload are rendered at the given token decimals.
func NewGatewayNotifier(url string, decimals int) *GatewayNotifier {
	return &GatewayNotifier{
		url:      url,
		decimals: decimals,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      slog.Default().With("component", "notify"),
	}
}

type envelope struct {
	Name     string  `json:"name"`
	WakeMode string  `json:"wakeMode"`
	Data     payload `json:"data"`
}

type payload struct {
	RouterAddress   string `json:"routerAddress"`
	RouterName      string `json:"routerName"`
	PreviousBalance string `json:"previousBalance"`
	NewBalance      string `json:"newBalance"`
	Increase        string `json:"increase"`
	DetectedAt      string `json:"detectedAt"`
}

// Notify posts the payment event to the gateway hook. A transport error or
// non-2xx status is logged at warning level and returned; it must never be
// treated as fatal by the caller.
func (n *GatewayNotifier) Notify(ctx context.Context, event *domain.PaymentEvent) error {
	body, err := json.Marshal(envelope{
		Name:     "x402-payment",
		WakeMode: "now",
		Data: payload{
			RouterAddress:   event.Address,
			RouterName:      event.Label,
			PreviousBalance: token.FormatUnits(event.Previous, n.decimals),
			NewBalance:      token.FormatUnits(event.Current, n.decimals),
			Increase:        token.FormatUnits(event.Increase, n.decimals),
			DetectedAt:      domain.Timestamp(event.DetectedAt),
		},
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("payment notification failed", "router", event.Label, "error", err)
		return fmt.Errorf("post gateway hook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.log.Warn("gateway hook rejected notification",
			"router", event.Label,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("gateway hook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopNotifier is used when the gateway port is unset or notifications are
// disabled.
type NoopNotifier struct{}

// Notify discards the event.
func (NoopNotifier) Notify(ctx context.Context, event *domain.PaymentEvent) error {
	return nil
}
