package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TrackingMode says how a product variant's stock is counted.
type TrackingMode string

const (
	// TrackingSerialized items carry a unique serial number each; quantity is
	// always one per movement.
	TrackingSerialized TrackingMode = "SERIALIZED"
	// TrackingLot items are counted per purchase lot with a unit cost each.
	TrackingLot TrackingMode = "LOT"
)

// MovementType enumerates stock movement directions.
type MovementType string

const (
	MovementOut     MovementType = "OUT"
	MovementRestore MovementType = "RESTORE"
)

// VariantStock is the per-branch stock header for a product variant.
type VariantStock struct {
	ProductVariantID int64
	BranchID         int64
	Tracking         TrackingMode
	OnHand           int64
	UpdatedAt        time.Time
}

// Lot is a costed batch of a lot-tracked variant at a branch. Lots are
// consumed oldest first.
type Lot struct {
	ID         int64
	BranchID   int64
	VariantID  int64
	Qty        int64
	UnitCost   decimal.Decimal
	ReceivedAt time.Time
}

// SerialUnit is one serialized item on hand.
type SerialUnit struct {
	ID        int64
	BranchID  int64
	VariantID int64
	Serial    string
	UnitCost  decimal.Decimal
	Sold      bool
}

// Consumption records what a decrease took from one lot, kept so a saga
// compensation can restore exactly what was consumed.
type Consumption struct {
	LotID    int64
	Qty      int64
	UnitCost decimal.Decimal
}

// DecreaseInput describes one stock deduction.
type DecreaseInput struct {
	ProductVariantID int64
	BranchID         int64
	Qty              int64
	Serial           string
	ActorID          int64
	RefID            string
}

// DecreaseResult carries the cost of goods sold for the decreased quantity
// plus enough state to undo the decrease.
type DecreaseResult struct {
	ProductVariantID int64
	BranchID         int64
	Qty              int64
	Serial           string
	CostOfGoodsSold  decimal.Decimal
	Consumed         []Consumption
}

var (
	// ErrInsufficientStock indicates the requested quantity is not on hand.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrSerialNotFound indicates the serial is not on hand at the branch.
	ErrSerialNotFound = errors.New("inventory: serial not on hand")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrSerialQty indicates a serialized decrease with quantity other than one.
	ErrSerialQty = errors.New("inventory: serialized items move one unit at a time")
	// ErrVariantNotFound indicates no stock record for the variant at the branch.
	ErrVariantNotFound = errors.New("inventory: variant not stocked at branch")
)
