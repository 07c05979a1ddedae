package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/benchline-erp/benchline/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records invoice events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service persists invoice documents for the sale finalization saga.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the invoicing service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create persists the invoice with its lines and returns the document with
// the server-assigned number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if err := input.Validate(); err != nil {
		return Invoice{}, err
	}
	var invoice Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertInvoice(ctx, input)
		if err != nil {
			return err
		}
		lines, err := tx.InsertInvoiceLines(ctx, inserted.ID, input.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		invoice = inserted
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.IssuedBy,
			Action:   "invoice.create",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", invoice.ID),
			Meta: map[string]any{
				"number": invoice.Number,
				"total":  invoice.Total.String(),
			},
		})
	}
	return invoice, nil
}

// Void marks an issued invoice VOID. Used as the saga compensation when a
// later step fails.
func (s *Service) Void(ctx context.Context, invoiceID, actorID int64, reason string) error {
	if invoiceID == 0 {
		return errors.New("invoicing: invoice id required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateInvoiceStatus(ctx, invoiceID, InvoiceStatusVoid)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoice.void",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", invoiceID),
			Meta:     map[string]any{"reason": reason},
		})
	}
	return nil
}
