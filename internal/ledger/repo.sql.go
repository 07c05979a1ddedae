package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/platform/db"
)

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// Repository persists journal entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertJournalEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error)
	GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	UpdateJournalStatus(ctx context.Context, entryID int64, status JournalStatus) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entity_id, description, currency, date, posted_by, status)
VALUES ($1,$2,$3,$4,$5,'POSTED') RETURNING id, number, posted_at, created_at, updated_at`,
		in.EntityID, in.Description, in.Currency, in.Date, in.PostedBy)
	entry := JournalEntry{
		EntityID:    in.EntityID,
		Description: in.Description,
		Currency:    in.Currency,
		Date:        in.Date,
		Refs:        in.Refs,
		PostedBy:    in.PostedBy,
		Status:      JournalStatusPosted,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	for _, ref := range in.Refs {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_refs (je_id, ref_kind, ref_id) VALUES ($1,$2,$3)`,
			entry.ID, ref.Kind, ref.ID); err != nil {
			return JournalEntry{}, err
		}
	}
	return entry, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (je_id, account_id, debit, credit, base_amount)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
			entryID, line.AccountID, line.Debit.String(), line.Credit.String(), line.BaseAmount.String())
		line.JournalID = entryID
		if err := row.Scan(&line.ID, &line.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, number, entity_id, description, currency, date, status, posted_by, posted_at, created_at, updated_at
FROM journal_entries WHERE id = $1`, entryID)
	var entry JournalEntry
	err := row.Scan(&entry.ID, &entry.Number, &entry.EntityID, &entry.Description, &entry.Currency,
		&entry.Date, &entry.Status, &entry.PostedBy, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}

	lineRows, err := r.tx.Query(ctx, `SELECT id, je_id, account_id, debit::text, credit::text, base_amount::text, created_at
FROM journal_lines WHERE je_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line JournalLine
		var debit, credit, base string
		if err := lineRows.Scan(&line.ID, &line.JournalID, &line.AccountID, &debit, &credit, &base, &line.CreatedAt); err != nil {
			return JournalEntry{}, err
		}
		if line.Debit, err = parseDecimal(debit); err != nil {
			return JournalEntry{}, err
		}
		if line.Credit, err = parseDecimal(credit); err != nil {
			return JournalEntry{}, err
		}
		if line.BaseAmount, err = parseDecimal(base); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return JournalEntry{}, err
	}

	refRows, err := r.tx.Query(ctx, `SELECT ref_kind, ref_id FROM journal_refs WHERE je_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer refRows.Close()
	for refRows.Next() {
		var ref Ref
		if err := refRows.Scan(&ref.Kind, &ref.ID); err != nil {
			return JournalEntry{}, err
		}
		entry.Refs = append(entry.Refs, ref)
	}
	return entry, refRows.Err()
}

func (r *txRepository) UpdateJournalStatus(ctx context.Context, entryID int64, status JournalStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status = $1, updated_at = NOW() WHERE id = $2`, status, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}
