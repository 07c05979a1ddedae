package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchline-erp/benchline/internal/ledger"
)

type stubLedger struct {
	nextID   int64
	posted   []ledger.PostingInput
	reversed []int64
	postErr  error
}

func (s *stubLedger) Post(_ context.Context, in ledger.PostingInput) (ledger.JournalEntry, error) {
	if s.postErr != nil {
		return ledger.JournalEntry{}, s.postErr
	}
	s.nextID++
	s.posted = append(s.posted, in)
	return ledger.JournalEntry{ID: s.nextID, EntityID: in.EntityID, Status: ledger.JournalStatusPosted}, nil
}

func (s *stubLedger) Reverse(_ context.Context, entryID, _ int64, _ string) (ledger.JournalEntry, error) {
	s.reversed = append(s.reversed, entryID)
	return ledger.JournalEntry{ID: entryID, Status: ledger.JournalStatusReversed}, nil
}

type stubStore struct {
	nextID    int64
	records   map[int64]PaymentRecord
	insertErr error
}

func (s *stubStore) InsertPayment(_ context.Context, in RecordInput, journalEntryID int64) (PaymentRecord, error) {
	if s.insertErr != nil {
		return PaymentRecord{}, s.insertErr
	}
	if s.records == nil {
		s.records = make(map[int64]PaymentRecord)
	}
	s.nextID++
	record := PaymentRecord{
		ID:             s.nextID,
		SourceID:       in.SourceID,
		SourceType:     in.SourceType,
		Direction:      in.Direction,
		Total:          in.TotalAmount(),
		JournalEntryID: journalEntryID,
		PaidAt:         in.Date,
		Lines:          in.Lines,
	}
	s.records[record.ID] = record
	return record, nil
}

func (s *stubStore) DeletePayment(_ context.Context, paymentID int64) error {
	if _, ok := s.records[paymentID]; !ok {
		return ErrPaymentNotFound
	}
	delete(s.records, paymentID)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func recordInput(direction Direction) RecordInput {
	return RecordInput{
		SourceID:   "42",
		SourceType: SourceSalesInvoice,
		Direction:  direction,
		Lines: []PaymentLine{
			{Method: "CASH", AccountID: 10, Amount: dec("100.00")},
			{Method: "CARD", AccountID: 15, Amount: dec("18.00")},
		},
		Date:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CounterAccountID: 11,
		EntityID:         1,
		ActorID:          7,
	}
}

func TestRecordInboundPaymentDebitsTender(t *testing.T) {
	led := &stubLedger{}
	store := &stubStore{}
	svc := NewService(store, led, nil)

	record, err := svc.RecordPayment(context.Background(), recordInput(DirectionIn))
	require.NoError(t, err)
	assert.True(t, record.Total.Equal(dec("118.00")))
	assert.Equal(t, led.nextID, record.JournalEntryID)

	require.Len(t, led.posted, 1)
	lines := led.posted[0].Lines
	require.Len(t, lines, 3)
	assert.True(t, lines[0].Debit.Equal(dec("100.00")), "cash tender debited")
	assert.True(t, lines[1].Debit.Equal(dec("18.00")), "card tender debited")
	assert.Equal(t, int64(11), lines[2].AccountID)
	assert.True(t, lines[2].Credit.Equal(dec("118.00")), "receivable credited for the total")

	require.Len(t, led.posted[0].Refs, 1)
	assert.Equal(t, ledger.RefKindPayment, led.posted[0].Refs[0].Kind)
	assert.Equal(t, "42", led.posted[0].Refs[0].ID)
}

func TestRecordOutboundPaymentSwapsSides(t *testing.T) {
	led := &stubLedger{}
	svc := NewService(&stubStore{}, led, nil)

	_, err := svc.RecordPayment(context.Background(), recordInput(DirectionOut))
	require.NoError(t, err)

	lines := led.posted[0].Lines
	assert.True(t, lines[0].Credit.Equal(dec("100.00")), "outbound credits the cash account")
	assert.True(t, lines[2].Debit.Equal(dec("118.00")), "counter account debited")
}

func TestRecordPaymentPersistFailureReversesEntry(t *testing.T) {
	led := &stubLedger{}
	store := &stubStore{insertErr: errors.New("boom")}
	svc := NewService(store, led, nil)

	_, err := svc.RecordPayment(context.Background(), recordInput(DirectionIn))
	require.Error(t, err)

	require.Len(t, led.posted, 1)
	require.Len(t, led.reversed, 1, "orphan cash movement must be reversed")
	assert.Equal(t, led.nextID, led.reversed[0])
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := NewService(&stubStore{}, &stubLedger{}, nil)

	input := recordInput(DirectionIn)
	input.Lines = nil
	_, err := svc.RecordPayment(context.Background(), input)
	require.ErrorIs(t, err, ErrNoPaymentLines)

	input = recordInput(DirectionIn)
	input.Lines[0].Amount = decimal.Zero
	_, err = svc.RecordPayment(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidAmount)

	input = recordInput("SIDEWAYS")
	_, err = svc.RecordPayment(context.Background(), input)
	require.Error(t, err)
}

func TestCancelPaymentDeletesRecordAndReverses(t *testing.T) {
	led := &stubLedger{}
	store := &stubStore{}
	svc := NewService(store, led, nil)

	record, err := svc.RecordPayment(context.Background(), recordInput(DirectionIn))
	require.NoError(t, err)

	require.NoError(t, svc.CancelPayment(context.Background(), record, 7))
	assert.Empty(t, store.records)
	require.Len(t, led.reversed, 1)
	assert.Equal(t, record.JournalEntryID, led.reversed[0])

	err = svc.CancelPayment(context.Background(), record, 7)
	require.ErrorIs(t, err, ErrPaymentNotFound)
}
