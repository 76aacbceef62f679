package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

// PaymentRepo implements storage.PaymentJournal using PostgreSQL.
type PaymentRepo struct {
	db *DB
}

// NewPaymentRepo creates a new PostgreSQL payment journal.
func NewPaymentRepo(db *DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

type paymentRow struct {
	ID              string    `db:"id"`
	RouterAddress   string    `db:"router_address"`
	RouterName      string    `db:"router_name"`
	PreviousBalance string    `db:"previous_balance"`
	NewBalance      string    `db:"new_balance"`
	Increase        string    `db:"increase"`
	DetectedAt      time.Time `db:"detected_at"`
}

// Record appends a detected payment.
func (r *PaymentRepo) Record(ctx context.Context, event *domain.PaymentEvent) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payments (id, router_address, router_name, previous_balance, new_balance, increase, detected_at)
		VALUES (:id, :router_address, :router_name, :previous_balance, :new_balance, :increase, :detected_at)
		ON CONFLICT (id) DO NOTHING`,
		paymentRow{
			ID:              event.ID,
			RouterAddress:   event.Address,
			RouterName:      event.Label,
			PreviousBalance: event.Previous.String(),
			NewBalance:      event.Current.String(),
			Increase:        event.Increase.String(),
			DetectedAt:      event.DetectedAt.UTC(),
		})
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

// Recent returns up to limit payments, newest first.
func (r *PaymentRepo) Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []paymentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, router_address, router_name, previous_balance, new_balance, increase, detected_at
		FROM payments
		ORDER BY detected_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	events := make([]*domain.PaymentEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, &domain.PaymentEvent{
			ID:         row.ID,
			Address:    row.RouterAddress,
			Label:      row.RouterName,
			Previous:   domain.ParseUnits(row.PreviousBalance),
			Current:    domain.ParseUnits(row.NewBalance),
			Increase:   domain.ParseUnits(row.Increase),
			DetectedAt: row.DetectedAt,
		})
	}
	return events, nil
}

// Prune deletes payments detected before the cutoff.
func (r *PaymentRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE detected_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune payments: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (r *PaymentRepo) Close() error {
	return r.db.Close()
}
