package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/platform/db"
)

// Repository persists stock state.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetVariantForUpdate(ctx context.Context, variantID, branchID int64) (VariantStock, error)
	AdjustOnHand(ctx context.Context, variantID, branchID, delta int64) error
	ListLotsForUpdate(ctx context.Context, branchID, variantID int64) ([]Lot, error)
	AddLotQty(ctx context.Context, lotID, delta int64) error
	GetSerialForUpdate(ctx context.Context, branchID, variantID int64, serial string) (SerialUnit, error)
	MarkSerialSold(ctx context.Context, unitID int64) error
	MarkSerialOnHand(ctx context.Context, branchID, variantID int64, serial string) error
	InsertMovement(ctx context.Context, kind MovementType, input DecreaseInput, cogs decimal.Decimal) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetVariantForUpdate(ctx context.Context, variantID, branchID int64) (VariantStock, error) {
	row := r.tx.QueryRow(ctx, `SELECT product_variant_id, branch_id, tracking, on_hand, updated_at
FROM variant_stock WHERE product_variant_id = $1 AND branch_id = $2 FOR UPDATE`, variantID, branchID)
	var stock VariantStock
	err := row.Scan(&stock.ProductVariantID, &stock.BranchID, &stock.Tracking, &stock.OnHand, &stock.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VariantStock{}, ErrVariantNotFound
		}
		return VariantStock{}, err
	}
	return stock, nil
}

func (r *txRepository) AdjustOnHand(ctx context.Context, variantID, branchID, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE variant_stock SET on_hand = on_hand + $1, updated_at = NOW()
WHERE product_variant_id = $2 AND branch_id = $3 AND on_hand + $1 >= 0`, delta, variantID, branchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *txRepository) ListLotsForUpdate(ctx context.Context, branchID, variantID int64) ([]Lot, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, branch_id, product_variant_id, qty, unit_cost::text, received_at
FROM stock_lots WHERE branch_id = $1 AND product_variant_id = $2 AND qty > 0
ORDER BY received_at, id FOR UPDATE`, branchID, variantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		var lot Lot
		var cost string
		if err := rows.Scan(&lot.ID, &lot.BranchID, &lot.VariantID, &lot.Qty, &cost, &lot.ReceivedAt); err != nil {
			return nil, err
		}
		if lot.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (r *txRepository) AddLotQty(ctx context.Context, lotID, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_lots SET qty = qty + $1 WHERE id = $2 AND qty + $1 >= 0`, delta, lotID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *txRepository) GetSerialForUpdate(ctx context.Context, branchID, variantID int64, serial string) (SerialUnit, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, branch_id, product_variant_id, serial, unit_cost::text, sold
FROM serial_units WHERE branch_id = $1 AND product_variant_id = $2 AND serial = $3 FOR UPDATE`, branchID, variantID, serial)
	var unit SerialUnit
	var cost string
	err := row.Scan(&unit.ID, &unit.BranchID, &unit.VariantID, &unit.Serial, &cost, &unit.Sold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SerialUnit{}, ErrSerialNotFound
		}
		return SerialUnit{}, err
	}
	if unit.UnitCost, err = decimal.NewFromString(cost); err != nil {
		return SerialUnit{}, err
	}
	return unit, nil
}

func (r *txRepository) MarkSerialSold(ctx context.Context, unitID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE serial_units SET sold = TRUE WHERE id = $1 AND sold = FALSE`, unitID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSerialNotFound
	}
	return nil
}

func (r *txRepository) MarkSerialOnHand(ctx context.Context, branchID, variantID int64, serial string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE serial_units SET sold = FALSE
WHERE branch_id = $1 AND product_variant_id = $2 AND serial = $3 AND sold = TRUE`, branchID, variantID, serial)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSerialNotFound
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, kind MovementType, input DecreaseInput, cogs decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (kind, product_variant_id, branch_id, qty, serial, cogs, actor_id, ref_id, moved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		kind, input.ProductVariantID, input.BranchID, input.Qty, nullString(input.Serial), cogs.String(), input.ActorID, nullString(input.RefID), time.Now().UTC())
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
