package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// RateResolver converts between currencies at a historical date.
type RateResolver interface {
	Rate(ctx context.Context, from, to string, onDate time.Time) (decimal.Decimal, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the single writer of financial truth: it validates and persists
// balanced journal entries.
type Service struct {
	repo         RepositoryPort
	rates        RateResolver
	audit        AuditPort
	baseCurrency string
	now          func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, rates RateResolver, audit AuditPort, baseCurrency string) *Service {
	return &Service{repo: repo, rates: rates, audit: audit, baseCurrency: baseCurrency, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// BaseCurrency returns the tenant's reporting currency.
func (s *Service) BaseCurrency() string {
	return s.baseCurrency
}

// Post validates the posting, converts every line to base currency at the
// entry date, enforces the balance invariant, and persists header and lines as
// one atomic write. Validation and conversion failures abort before any write.
func (s *Service) Post(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if input.Currency == "" {
		input.Currency = s.baseCurrency
	}

	rate, err := s.rates.Rate(ctx, input.Currency, s.baseCurrency, input.Date)
	if err != nil {
		return JournalEntry{}, err
	}

	lines := make([]JournalLine, 0, len(input.Lines))
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range input.Lines {
		native := line.Debit
		if line.Credit.IsPositive() {
			native = line.Credit
		}
		base := native.Mul(rate)
		if line.Debit.IsPositive() {
			debits = debits.Add(base)
		} else {
			credits = credits.Add(base)
		}
		lines = append(lines, JournalLine{
			AccountID:  line.AccountID,
			Debit:      line.Debit,
			Credit:     line.Credit,
			BaseAmount: base,
		})
	}

	imbalance := debits.Sub(credits)
	if imbalance.Abs().GreaterThan(Epsilon) {
		return JournalEntry{}, &UnbalancedEntryError{Debits: debits, Credits: credits, Imbalance: imbalance}
	}

	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertJournalEntry(ctx, input)
		if err != nil {
			return err
		}
		persisted, err := tx.InsertJournalLines(ctx, inserted.ID, lines)
		if err != nil {
			return err
		}
		inserted.Lines = persisted
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}

	s.recordAudit(ctx, "journal.post", entry, map[string]any{
		"number":   entry.Number,
		"currency": input.Currency,
		"refs":     refMeta(input.Refs),
	})
	return entry, nil
}

// Reverse creates the offsetting entry for a posted journal, tagged back to
// the original. The original is marked REVERSED; its lines are untouched.
func (s *Service) Reverse(ctx context.Context, entryID, actorID int64, description string) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetJournalWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		if original.Status != JournalStatusPosted {
			return ErrAlreadyReversed
		}
		input := PostingInput{
			EntityID:    original.EntityID,
			Description: defaultReversalDescription(description, original.Number),
			Currency:    original.Currency,
			Date:        original.Date,
			Refs:        []Ref{{Kind: RefKindReversal, ID: fmt.Sprintf("%d", original.ID)}},
			PostedBy:    actorID,
		}
		lines := make([]JournalLine, 0, len(original.Lines))
		for _, line := range original.Lines {
			lines = append(lines, JournalLine{
				AccountID:  line.AccountID,
				Debit:      line.Credit,
				Credit:     line.Debit,
				BaseAmount: line.BaseAmount,
			})
		}
		inserted, err := tx.InsertJournalEntry(ctx, input)
		if err != nil {
			return err
		}
		persisted, err := tx.InsertJournalLines(ctx, inserted.ID, lines)
		if err != nil {
			return err
		}
		if err := tx.UpdateJournalStatus(ctx, original.ID, JournalStatusReversed); err != nil {
			return err
		}
		inserted.Lines = persisted
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}

	s.recordAudit(ctx, "journal.reverse", reversal, map[string]any{
		"original_id": entryID,
		"number":      reversal.Number,
	})
	return reversal, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entry JournalEntry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  entry.PostedBy,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func refMeta(refs []Ref) []map[string]string {
	out := make([]map[string]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, map[string]string{"kind": string(ref.Kind), "id": ref.ID})
	}
	return out
}

func defaultReversalDescription(description string, number int64) string {
	if description != "" {
		return description
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
