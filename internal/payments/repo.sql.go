package payments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benchline-erp/benchline/internal/platform/db"
)

// Repository persists payment records in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertPayment writes the payment header and its tender lines.
func (r *Repository) InsertPayment(ctx context.Context, in RecordInput, journalEntryID int64) (PaymentRecord, error) {
	record := PaymentRecord{
		SourceID:       in.SourceID,
		SourceType:     in.SourceType,
		Direction:      in.Direction,
		Total:          in.TotalAmount(),
		JournalEntryID: journalEntryID,
		Notes:          in.Notes,
		PaidAt:         in.Date,
		Lines:          in.Lines,
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO payment_records (source_id, source_type, direction, total, journal_entry_id, notes, paid_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
			RETURNING id, created_at`,
			in.SourceID, string(in.SourceType), string(in.Direction), record.Total.String(),
			journalEntryID, in.Notes, in.Date,
		).Scan(&record.ID, &record.CreatedAt)
		if err != nil {
			return fmt.Errorf("payments: insert record: %w", err)
		}
		for _, line := range in.Lines {
			_, err = tx.Exec(ctx, `
				INSERT INTO payment_lines (payment_id, method, account_id, amount)
				VALUES ($1, $2, $3, $4::numeric)`,
				record.ID, line.Method, line.AccountID, line.Amount.String(),
			)
			if err != nil {
				return fmt.Errorf("payments: insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return PaymentRecord{}, err
	}
	return record, nil
}

// DeletePayment removes a payment and its lines.
func (r *Repository) DeletePayment(ctx context.Context, paymentID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payment_lines WHERE payment_id = $1`, paymentID); err != nil {
			return fmt.Errorf("payments: delete lines: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM payment_records WHERE id = $1`, paymentID)
		if err != nil {
			return fmt.Errorf("payments: delete record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPaymentNotFound
		}
		return nil
	})
}
