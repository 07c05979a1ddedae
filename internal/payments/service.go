package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/benchline-erp/benchline/internal/ledger"
	"github.com/benchline-erp/benchline/internal/shared"
)

// LedgerPort posts the cash/bank movement for a payment.
type LedgerPort interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
	Reverse(ctx context.Context, entryID, actorID int64, description string) (ledger.JournalEntry, error)
}

// StorePort persists payment records.
type StorePort interface {
	InsertPayment(ctx context.Context, in RecordInput, journalEntryID int64) (PaymentRecord, error)
	DeletePayment(ctx context.Context, paymentID int64) error
}

// AuditPort records payment events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records customer/supplier payments and posts the matching cash or
// bank ledger movement.
type Service struct {
	store  StorePort
	ledger LedgerPort
	audit  AuditPort
}

// NewService constructs the payments service.
func NewService(store StorePort, ledgerPort LedgerPort, audit AuditPort) *Service {
	return &Service{store: store, ledger: ledgerPort, audit: audit}
}

// RecordPayment validates the tender lines, posts one balanced journal entry
// for the cash movement, then persists the payment record tagged with that
// entry. A posting failure aborts with nothing recorded.
func (s *Service) RecordPayment(ctx context.Context, input RecordInput) (PaymentRecord, error) {
	if err := input.Validate(); err != nil {
		return PaymentRecord{}, err
	}
	if s == nil || s.store == nil || s.ledger == nil {
		return PaymentRecord{}, errors.New("payments: service not initialised")
	}

	total := input.TotalAmount()
	lines := make([]ledger.PostingLineInput, 0, len(input.Lines)+1)
	for _, line := range input.Lines {
		posting := ledger.PostingLineInput{AccountID: line.AccountID}
		if input.Direction == DirectionIn {
			posting.Debit = line.Amount
		} else {
			posting.Credit = line.Amount
		}
		lines = append(lines, posting)
	}
	counter := ledger.PostingLineInput{AccountID: input.CounterAccountID}
	if input.Direction == DirectionIn {
		counter.Credit = total
	} else {
		counter.Debit = total
	}
	lines = append(lines, counter)

	entry, err := s.ledger.Post(ctx, ledger.PostingInput{
		EntityID:    input.EntityID,
		Description: fmt.Sprintf("Payment %s %s", input.Direction, input.SourceID),
		Date:        input.Date,
		Refs:        []ledger.Ref{{Kind: ledger.RefKindPayment, ID: input.SourceID}},
		PostedBy:    input.ActorID,
		Lines:       lines,
	})
	if err != nil {
		return PaymentRecord{}, err
	}

	record, err := s.store.InsertPayment(ctx, input, entry.ID)
	if err != nil {
		// The cash movement must not survive without its payment record.
		if _, revErr := s.ledger.Reverse(ctx, entry.ID, input.ActorID, "payment record write failed"); revErr != nil {
			return PaymentRecord{}, errors.Join(err, revErr)
		}
		return PaymentRecord{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "payment.record",
			Entity:   "payment",
			EntityID: fmt.Sprintf("%d", record.ID),
			Meta: map[string]any{
				"source_id":   input.SourceID,
				"source_type": string(input.SourceType),
				"direction":   string(input.Direction),
				"total":       total.String(),
				"journal_id":  entry.ID,
			},
		})
	}
	return record, nil
}

// CancelPayment undoes a recorded payment: the record is removed and its cash
// movement reversed. Used as the saga compensation.
func (s *Service) CancelPayment(ctx context.Context, record PaymentRecord, actorID int64) error {
	if record.ID == 0 {
		return errors.New("payments: payment id required")
	}
	if err := s.store.DeletePayment(ctx, record.ID); err != nil {
		return err
	}
	if record.JournalEntryID != 0 {
		if _, err := s.ledger.Reverse(ctx, record.JournalEntryID, actorID, "payment cancelled"); err != nil {
			return err
		}
	}
	return nil
}
