package domain

import (
	"math/big"
	"sync"
	"time"
)

// TrackedRouter represents a router account whose token balance is watched.
// Address keeps the casing it was first seen with; deduplication is
// case-insensitive and happens at the registry level.
type TrackedRouter struct {
	Address string
	Label   string

	mu            sync.Mutex
	lastBalance   *big.Int
	lastCheckedAt time.Time
}

// NewTrackedRouter creates a tracked router with no balance history. An empty
// label falls back to a shortened form of the address.
func NewTrackedRouter(address, label string) *TrackedRouter {
	if label == "" {
		label = ShortAddress(address)
	}
	return &TrackedRouter{Address: address, Label: label}
}

// ApplySample records a successful balance read and returns the previous
// balance, or nil if this was the first sample for the router.
func (r *TrackedRouter) ApplySample(balance *big.Int, at time.Time) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.lastBalance
	r.lastBalance = new(big.Int).Set(balance)
	r.lastCheckedAt = at
	return prev
}

// Snapshot returns the last known balance and check time. The balance is nil
// and the time zero until the first successful sample.
func (r *TrackedRouter) Snapshot() (*big.Int, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastBalance == nil {
		return nil, r.lastCheckedAt
	}
	return new(big.Int).Set(r.lastBalance), r.lastCheckedAt
}

// ShortAddress renders an address as "0x1234...5678" for display labels.
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
