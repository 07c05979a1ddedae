package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock deduction and restoration. It is the inventory
// collaborator of the sale finalization saga: every decrease returns the cost
// of goods sold for the quantity taken.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// DecreaseStock removes quantity from on-hand stock and returns its cost.
// Serialized variants move exactly one unit identified by serial; lot-tracked
// variants consume lots oldest first.
func (s *Service) DecreaseStock(ctx context.Context, input DecreaseInput) (DecreaseResult, error) {
	if input.ProductVariantID == 0 || input.BranchID == 0 {
		return DecreaseResult{}, errors.New("inventory: variant and branch required")
	}
	if input.Qty <= 0 {
		return DecreaseResult{}, ErrInvalidQuantity
	}

	var result DecreaseResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stock, err := tx.GetVariantForUpdate(ctx, input.ProductVariantID, input.BranchID)
		if err != nil {
			return err
		}
		switch stock.Tracking {
		case TrackingSerialized:
			result, err = decreaseSerialized(ctx, tx, input)
		case TrackingLot:
			result, err = decreaseLots(ctx, tx, input)
		default:
			err = fmt.Errorf("inventory: unknown tracking mode %q", stock.Tracking)
		}
		if err != nil {
			return err
		}
		if err := tx.AdjustOnHand(ctx, input.ProductVariantID, input.BranchID, -input.Qty); err != nil {
			return err
		}
		return tx.InsertMovement(ctx, MovementOut, input, result.CostOfGoodsSold)
	})
	if err != nil {
		return DecreaseResult{}, err
	}

	s.recordAudit(ctx, "stock.decrease", input, result.CostOfGoodsSold)
	return result, nil
}

// RestoreStock is the exact compensation for a prior decrease: consumed lots
// get their quantities back and sold serials return to on-hand.
func (s *Service) RestoreStock(ctx context.Context, prior DecreaseResult, actorID int64, refID string) error {
	if prior.ProductVariantID == 0 || prior.BranchID == 0 {
		return errors.New("inventory: variant and branch required")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if prior.Serial != "" {
			if err := tx.MarkSerialOnHand(ctx, prior.BranchID, prior.ProductVariantID, prior.Serial); err != nil {
				return err
			}
		}
		for _, consumed := range prior.Consumed {
			if err := tx.AddLotQty(ctx, consumed.LotID, consumed.Qty); err != nil {
				return err
			}
		}
		if err := tx.AdjustOnHand(ctx, prior.ProductVariantID, prior.BranchID, prior.Qty); err != nil {
			return err
		}
		input := DecreaseInput{
			ProductVariantID: prior.ProductVariantID,
			BranchID:         prior.BranchID,
			Qty:              prior.Qty,
			Serial:           prior.Serial,
			ActorID:          actorID,
			RefID:            refID,
		}
		return tx.InsertMovement(ctx, MovementRestore, input, prior.CostOfGoodsSold)
	})
}

func decreaseSerialized(ctx context.Context, tx TxRepository, input DecreaseInput) (DecreaseResult, error) {
	if input.Qty != 1 {
		return DecreaseResult{}, ErrSerialQty
	}
	if input.Serial == "" {
		return DecreaseResult{}, ErrSerialNotFound
	}
	unit, err := tx.GetSerialForUpdate(ctx, input.BranchID, input.ProductVariantID, input.Serial)
	if err != nil {
		return DecreaseResult{}, err
	}
	if unit.Sold {
		return DecreaseResult{}, ErrSerialNotFound
	}
	if err := tx.MarkSerialSold(ctx, unit.ID); err != nil {
		return DecreaseResult{}, err
	}
	return DecreaseResult{
		ProductVariantID: input.ProductVariantID,
		BranchID:         input.BranchID,
		Qty:              1,
		Serial:           input.Serial,
		CostOfGoodsSold:  unit.UnitCost,
	}, nil
}

func decreaseLots(ctx context.Context, tx TxRepository, input DecreaseInput) (DecreaseResult, error) {
	lots, err := tx.ListLotsForUpdate(ctx, input.BranchID, input.ProductVariantID)
	if err != nil {
		return DecreaseResult{}, err
	}
	remaining := input.Qty
	cogs := decimal.Zero
	var consumed []Consumption
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := lot.Qty
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}
		if err := tx.AddLotQty(ctx, lot.ID, -take); err != nil {
			return DecreaseResult{}, err
		}
		cogs = cogs.Add(lot.UnitCost.Mul(decimal.NewFromInt(take)))
		consumed = append(consumed, Consumption{LotID: lot.ID, Qty: take, UnitCost: lot.UnitCost})
		remaining -= take
	}
	if remaining > 0 {
		return DecreaseResult{}, fmt.Errorf("%w: short %d of %d", ErrInsufficientStock, remaining, input.Qty)
	}
	return DecreaseResult{
		ProductVariantID: input.ProductVariantID,
		BranchID:         input.BranchID,
		Qty:              input.Qty,
		CostOfGoodsSold:  cogs,
		Consumed:         consumed,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, input DecreaseInput, cogs decimal.Decimal) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   action,
		Entity:   "variant_stock",
		EntityID: fmt.Sprintf("%d:%d", input.BranchID, input.ProductVariantID),
		Meta: map[string]any{
			"qty":    input.Qty,
			"serial": input.Serial,
			"cogs":   cogs.String(),
			"ref_id": input.RefID,
		},
	})
}
