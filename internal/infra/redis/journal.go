package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

const paymentsKey = "x402:payments"

// Journal implements storage.PaymentJournal on a Redis sorted set scored by
// detection time in unix milliseconds.
type Journal struct {
	client *Client
}

// NewJournal creates a Redis-backed payment journal.
func NewJournal(client *Client) *Journal {
	return &Journal{client: client}
}

// paymentRecord is the JSON shape stored as a sorted-set member.
type paymentRecord struct {
	ID              string `json:"id"`
	RouterAddress   string `json:"routerAddress"`
	RouterName      string `json:"routerName"`
	PreviousBalance string `json:"previousBalance"`
	NewBalance      string `json:"newBalance"`
	Increase        string `json:"increase"`
	DetectedAt      string `json:"detectedAt"`
}

// Record appends a detected payment.
func (j *Journal) Record(ctx context.Context, event *domain.PaymentEvent) error {
	member, err := json.Marshal(paymentRecord{
		ID:              event.ID,
		RouterAddress:   event.Address,
		RouterName:      event.Label,
		PreviousBalance: event.Previous.String(),
		NewBalance:      event.Current.String(),
		Increase:        event.Increase.String(),
		DetectedAt:      domain.Timestamp(event.DetectedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}

	err = j.client.rdb.ZAdd(ctx, paymentsKey, redis.Z{
		Score:  float64(event.DetectedAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// Recent returns up to limit payments, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	members, err := j.client.rdb.ZRevRange(ctx, paymentsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	events := make([]*domain.PaymentEvent, 0, len(members))
	for _, member := range members {
		var rec paymentRecord
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			return nil, fmt.Errorf("invalid payment record: %w", err)
		}
		detectedAt, err := time.Parse(domain.TimestampLayout, rec.DetectedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid payment timestamp: %w", err)
		}
		events = append(events, &domain.PaymentEvent{
			ID:         rec.ID,
			Address:    rec.RouterAddress,
			Label:      rec.RouterName,
			Previous:   domain.ParseUnits(rec.PreviousBalance),
			Current:    domain.ParseUnits(rec.NewBalance),
			Increase:   domain.ParseUnits(rec.Increase),
			DetectedAt: detectedAt,
		})
	}
	return events, nil
}

// Prune deletes payments detected before the cutoff.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	cutoff := fmt.Sprintf("(%d", before.UnixMilli())
	n, err := j.client.rdb.ZRemRangeByScore(ctx, paymentsKey, "-inf", cutoff).Result()
	if err != nil {
		return 0, fmt.Errorf("zremrangebyscore failed: %w", err)
	}
	return n, nil
}

// Close closes the underlying Redis connection.
func (j *Journal) Close() error {
	return j.client.Close()
}
