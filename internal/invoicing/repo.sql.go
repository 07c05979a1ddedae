package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benchline-erp/benchline/internal/platform/db"
)

// Repository persists invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertInvoice(ctx context.Context, in CreateInput) (Invoice, error)
	InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) ([]InvoiceLine, error)
	UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("invoicing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) InsertInvoice(ctx context.Context, in CreateInput) (Invoice, error) {
	total := in.Subtotal.Add(in.Tax)
	row := r.tx.QueryRow(ctx, `INSERT INTO invoices (customer_id, branch_id, status, subtotal, tax, total, issued_by)
VALUES ($1,$2,'ISSUED',$3,$4,$5,$6)
RETURNING id, number, issued_at, created_at, updated_at`,
		in.CustomerID, in.BranchID, in.Subtotal.String(), in.Tax.String(), total.String(), in.IssuedBy)
	invoice := Invoice{
		CustomerID: in.CustomerID,
		BranchID:   in.BranchID,
		Status:     InvoiceStatusIssued,
		Subtotal:   in.Subtotal,
		Tax:        in.Tax,
		Total:      total,
		IssuedBy:   in.IssuedBy,
	}
	var seq int64
	if err := row.Scan(&invoice.ID, &seq, &invoice.IssuedAt, &invoice.CreatedAt, &invoice.UpdatedAt); err != nil {
		return Invoice{}, err
	}
	invoice.Number = fmt.Sprintf("INV-%06d", seq)
	if _, err := r.tx.Exec(ctx, `UPDATE invoices SET display_number = $1 WHERE id = $2`, invoice.Number, invoice.ID); err != nil {
		return Invoice{}, err
	}
	return invoice, nil
}

func (r *txRepository) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) ([]InvoiceLine, error) {
	out := make([]InvoiceLine, 0, len(lines))
	for _, line := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO invoice_lines (invoice_id, product_variant_id, description, qty, unit_price, line_total, cogs)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			invoiceID, line.ProductVariantID, line.Description, line.Qty,
			line.UnitPrice.String(), line.LineTotal.String(), line.CostOfGoodsSold.String())
		line.InvoiceID = invoiceID
		if err := row.Scan(&line.ID); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) UpdateInvoiceStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND status <> $1`, status, invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current InvoiceStatus
		err := r.tx.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1`, invoiceID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvoiceNotFound
		}
		if err != nil {
			return err
		}
		if current == status {
			return ErrAlreadyVoid
		}
		return ErrInvoiceNotFound
	}
	return nil
}
