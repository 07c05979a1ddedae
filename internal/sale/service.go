package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/accounts"
	"github.com/benchline-erp/benchline/internal/inventory"
	"github.com/benchline-erp/benchline/internal/invoicing"
	"github.com/benchline-erp/benchline/internal/ledger"
	"github.com/benchline-erp/benchline/internal/payments"
	"github.com/benchline-erp/benchline/internal/shared"
)

// InventoryPort decreases and restores stock.
type InventoryPort interface {
	DecreaseStock(ctx context.Context, input inventory.DecreaseInput) (inventory.DecreaseResult, error)
	RestoreStock(ctx context.Context, prior inventory.DecreaseResult, actorID int64, refID string) error
}

// InvoicePort creates and voids invoices.
type InvoicePort interface {
	Create(ctx context.Context, input invoicing.CreateInput) (invoicing.Invoice, error)
	Void(ctx context.Context, invoiceID, actorID int64, reason string) error
}

// LedgerPort posts and reverses journal entries.
type LedgerPort interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
	Reverse(ctx context.Context, entryID, actorID int64, description string) (ledger.JournalEntry, error)
}

// PaymentPort records and cancels payments.
type PaymentPort interface {
	RecordPayment(ctx context.Context, input payments.RecordInput) (payments.PaymentRecord, error)
	CancelPayment(ctx context.Context, record payments.PaymentRecord, actorID int64) error
}

// AccountPort resolves the tenant's well-known accounts.
type AccountPort interface {
	ResolveSystemAccounts(ctx context.Context) (accounts.SystemAccounts, error)
}

// IdempotencyPort guards against replayed finalizations.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records saga events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts finalization outcomes.
type MetricsPort interface {
	ObserveSale(outcome string)
}

const idempotencyModule = "sale"

// Service orchestrates sale finalization across inventory, invoicing, the
// ledger and payments. There is no cross-collection transaction spanning all
// four, so each completed step registers a compensating action and a failure
// unwinds them in reverse order.
type Service struct {
	inventory InventoryPort
	invoices  InvoicePort
	ledger    LedgerPort
	payments  PaymentPort
	accounts  AccountPort
	idem      IdempotencyPort
	audit     AuditPort
	metrics   MetricsPort
	logger    *slog.Logger
}

// WithMetrics attaches outcome counters.
func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

// NewService constructs the orchestrator.
func NewService(
	inventoryPort InventoryPort,
	invoicePort InvoicePort,
	ledgerPort LedgerPort,
	paymentPort PaymentPort,
	accountPort AccountPort,
	idem IdempotencyPort,
	audit AuditPort,
	logger *slog.Logger,
) *Service {
	return &Service{
		inventory: inventoryPort,
		invoices:  invoicePort,
		ledger:    ledgerPort,
		payments:  paymentPort,
		accounts:  accountPort,
		idem:      idem,
		audit:     audit,
		logger:    logger,
	}
}

// saga accumulates the compensating actions for the steps completed so far.
type saga struct {
	state       SagaState
	compensates []func(context.Context) error
}

func (sg *saga) advance(state SagaState, compensate func(context.Context) error) {
	sg.state = state
	if compensate != nil {
		sg.compensates = append(sg.compensates, compensate)
	}
}

// unwind runs the compensations newest first. Compensation failures are
// collected rather than aborting the unwind, so every reversible step gets a
// chance to roll back.
func (sg *saga) unwind(ctx context.Context) error {
	var errs []error
	for i := len(sg.compensates) - 1; i >= 0; i-- {
		if err := sg.compensates[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FinalizeSale runs the sale saga: decrease stock per cart line, create the
// invoice, post the revenue and COGS journal entries, record the payment.
// Any step failing rolls back every earlier step and releases the
// idempotency key so the caller may retry from scratch.
func (s *Service) FinalizeSale(ctx context.Context, input FinalizeSaleInput) (invoicing.Invoice, error) {
	if err := input.Validate(); err != nil {
		return invoicing.Invoice{}, err
	}

	key := input.Key()
	if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return invoicing.Invoice{}, ErrDuplicateSale
		}
		return invoicing.Invoice{}, err
	}

	sys, err := s.accounts.ResolveSystemAccounts(ctx)
	if err != nil {
		_ = s.idem.Delete(ctx, key)
		return invoicing.Invoice{}, err
	}

	// sagaID correlates the stock movements, log lines and compensations of
	// one finalization attempt.
	sagaID := uuid.NewString()
	sg := &saga{state: SagaStarted}
	invoice, err := s.run(ctx, sg, sagaID, input, sys)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveSale("rolled_back")
		}
		// Compensations must still run when the failure was the caller's
		// context being cancelled.
		rollbackCtx := context.WithoutCancel(ctx)
		if unwindErr := sg.unwind(rollbackCtx); unwindErr != nil {
			s.log().Error("sale rollback incomplete",
				slog.String("saga_id", sagaID),
				slog.String("state", string(sg.state)),
				slog.Any("error", unwindErr))
			err = errors.Join(err, unwindErr)
		}
		// The key only survives a committed sale.
		if delErr := s.idem.Delete(rollbackCtx, key); delErr != nil {
			s.log().Error("idempotency key release failed", slog.Any("error", delErr))
		}
		return invoicing.Invoice{}, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSale("committed")
	}
	return invoice, nil
}

func (s *Service) run(ctx context.Context, sg *saga, sagaID string, input FinalizeSaleInput, sys accounts.SystemAccounts) (invoicing.Invoice, error) {
	// Step 1: decrease stock line by line, accumulating COGS. Each decrease
	// registers its own restore so a failure mid-cart undoes only what was
	// actually taken.
	totalCOGS := decimal.Zero
	invoiceLines := make([]invoicing.InvoiceLine, 0, len(input.Cart.Lines))
	for _, line := range input.Cart.Lines {
		result, err := s.inventory.DecreaseStock(ctx, inventory.DecreaseInput{
			ProductVariantID: line.ProductVariantID,
			BranchID:         input.BranchID,
			Qty:              line.Qty,
			Serial:           line.Serial,
			ActorID:          input.UserID,
			RefID:            "sale:" + sagaID,
		})
		if err != nil {
			return invoicing.Invoice{}, fmt.Errorf("sale: decrease stock: %w", err)
		}
		prior := result
		sg.advance(SagaStockReserved, func(ctx context.Context) error {
			return s.inventory.RestoreStock(ctx, prior, input.UserID, "sale rollback")
		})
		totalCOGS = totalCOGS.Add(result.CostOfGoodsSold)
		invoiceLines = append(invoiceLines, invoicing.InvoiceLine{
			ProductVariantID: line.ProductVariantID,
			Description:      line.Description,
			Qty:              line.Qty,
			UnitPrice:        line.UnitPrice,
			LineTotal:        line.LineTotal(),
			CostOfGoodsSold:  result.CostOfGoodsSold,
		})
	}

	// Step 2: create the invoice.
	invoice, err := s.invoices.Create(ctx, invoicing.CreateInput{
		CustomerID: input.CustomerID,
		BranchID:   input.BranchID,
		IssuedBy:   input.UserID,
		Subtotal:   input.Cart.Subtotal(),
		Tax:        input.Cart.Tax,
		Lines:      invoiceLines,
	})
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("sale: create invoice: %w", err)
	}
	sg.advance(SagaInvoiceCreated, func(ctx context.Context) error {
		return s.invoices.Void(ctx, invoice.ID, input.UserID, "sale rollback")
	})
	invoiceRef := strconv.FormatInt(invoice.ID, 10)

	// Step 3 and 4: post the revenue entry, then the COGS entry, both tagged
	// with the invoice.
	revenueLines := []ledger.PostingLineInput{
		{AccountID: sys.AccountsRecv.ID, Debit: invoice.Total},
		{AccountID: sys.SalesRevenue.ID, Credit: invoice.Subtotal},
	}
	if invoice.Tax.IsPositive() {
		revenueLines = append(revenueLines, ledger.PostingLineInput{AccountID: sys.TaxPayable.ID, Credit: invoice.Tax})
	}
	revenueEntry, err := s.ledger.Post(ctx, ledger.PostingInput{
		EntityID:    input.EntityID,
		Description: fmt.Sprintf("Sale %s", invoice.Number),
		Date:        input.Date,
		Refs:        []ledger.Ref{{Kind: ledger.RefKindSalesInvoice, ID: invoiceRef}},
		PostedBy:    input.UserID,
		Lines:       revenueLines,
	})
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("sale: post revenue entry: %w", err)
	}
	sg.advance(SagaPosted, func(ctx context.Context) error {
		_, err := s.ledger.Reverse(ctx, revenueEntry.ID, input.UserID, "sale rollback")
		return err
	})

	if totalCOGS.IsPositive() {
		cogsEntry, err := s.ledger.Post(ctx, ledger.PostingInput{
			EntityID:    input.EntityID,
			Description: fmt.Sprintf("COGS for sale %s", invoice.Number),
			Date:        input.Date,
			Refs:        []ledger.Ref{{Kind: ledger.RefKindSalesInvoice, ID: invoiceRef}},
			PostedBy:    input.UserID,
			Lines: []ledger.PostingLineInput{
				{AccountID: sys.COGS.ID, Debit: totalCOGS},
				{AccountID: sys.InventoryAsset.ID, Credit: totalCOGS},
			},
		})
		if err != nil {
			return invoicing.Invoice{}, fmt.Errorf("sale: post cogs entry: %w", err)
		}
		sg.advance(SagaPosted, func(ctx context.Context) error {
			_, err := s.ledger.Reverse(ctx, cogsEntry.ID, input.UserID, "sale rollback")
			return err
		})
	}

	// Step 5: record the payment against AR.
	record, err := s.payments.RecordPayment(ctx, payments.RecordInput{
		SourceID:         invoiceRef,
		SourceType:       payments.SourceSalesInvoice,
		Direction:        payments.DirectionIn,
		Lines:            input.Payment.Lines,
		Date:             input.Date,
		Notes:            input.Payment.Notes,
		CounterAccountID: sys.AccountsRecv.ID,
		EntityID:         input.EntityID,
		ActorID:          input.UserID,
	})
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("sale: record payment: %w", err)
	}
	sg.advance(SagaPaid, func(ctx context.Context) error {
		return s.payments.CancelPayment(ctx, record, input.UserID)
	})

	sg.state = SagaCommitted
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.UserID,
			Action:   "sale.finalize",
			Entity:   "invoice",
			EntityID: invoiceRef,
			Meta: map[string]any{
				"invoice_number": invoice.Number,
				"total":          invoice.Total.String(),
				"cogs":           totalCOGS.String(),
				"payment_id":     record.ID,
			},
		})
	}
	return invoice, nil
}

func (s *Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger.With(slog.String("component", "sale"))
}
