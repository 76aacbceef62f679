package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wire format for event timestamps (ISO-8601, UTC,
// millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp renders t in the wire format used for detectedAt and lastChecked
// fields.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// PaymentEvent represents a detected balance increase on a tracked router.
// Amounts are raw token base units.
type PaymentEvent struct {
	ID         string
	Address    string
	Label      string
	Previous   *big.Int
	Current    *big.Int
	Increase   *big.Int
	DetectedAt time.Time
}

// NewPaymentEvent builds a payment event for a balance increase on router.
func NewPaymentEvent(router *TrackedRouter, prev, current *big.Int, at time.Time) *PaymentEvent {
	return &PaymentEvent{
		ID:         uuid.NewString(),
		Address:    router.Address,
		Label:      router.Label,
		Previous:   new(big.Int).Set(prev),
		Current:    new(big.Int).Set(current),
		Increase:   new(big.Int).Sub(current, prev),
		DetectedAt: at,
	}
}

// ParseUnits parses a base-10 raw unit amount, returning zero for anything
// unparseable.
func ParseUnits(s string) *big.Int {
	n := new(big.Int)
	if _, ok := n.SetString(s, 10); !ok {
		return new(big.Int)
	}
	return n
}
