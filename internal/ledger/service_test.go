package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchline-erp/benchline/internal/shared"
)

type mockRepository struct {
	entries map[int64]*JournalEntry
	nextID  int64
	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{entries: make(map[int64]*JournalEntry), nextID: 1}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	// Stage writes and surface them only when fn succeeds, mirroring a
	// transaction commit.
	tx := &mockTxRepo{mock: m, staged: make(map[int64]*JournalEntry)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, entry := range tx.staged {
		m.entries[id] = entry
	}
	for id, status := range tx.statusChanges {
		if e, ok := m.entries[id]; ok {
			e.Status = status
		}
	}
	return nil
}

type mockTxRepo struct {
	mock          *mockRepository
	staged        map[int64]*JournalEntry
	statusChanges map[int64]JournalStatus
}

func (t *mockTxRepo) InsertJournalEntry(_ context.Context, in PostingInput) (JournalEntry, error) {
	id := t.mock.nextID
	t.mock.nextID++
	entry := JournalEntry{
		ID:          id,
		Number:      id,
		EntityID:    in.EntityID,
		Description: in.Description,
		Currency:    in.Currency,
		Date:        in.Date,
		Refs:        in.Refs,
		Status:      JournalStatusPosted,
		PostedBy:    in.PostedBy,
		PostedAt:    time.Now(),
	}
	t.staged[id] = &entry
	return entry, nil
}

func (t *mockTxRepo) InsertJournalLines(_ context.Context, entryID int64, lines []JournalLine) ([]JournalLine, error) {
	out := make([]JournalLine, len(lines))
	copy(out, lines)
	for i := range out {
		out[i].ID = int64(i + 1)
		out[i].JournalID = entryID
	}
	t.staged[entryID].Lines = out
	return out, nil
}

func (t *mockTxRepo) GetJournalWithLines(_ context.Context, entryID int64) (JournalEntry, error) {
	if e, ok := t.staged[entryID]; ok {
		return *e, nil
	}
	if e, ok := t.mock.entries[entryID]; ok {
		return *e, nil
	}
	return JournalEntry{}, ErrEntryNotFound
}

func (t *mockTxRepo) UpdateJournalStatus(_ context.Context, entryID int64, status JournalStatus) error {
	if t.statusChanges == nil {
		t.statusChanges = make(map[int64]JournalStatus)
	}
	t.statusChanges[entryID] = status
	return nil
}

type fixedRates struct {
	rate  decimal.Decimal
	calls int
}

func (f *fixedRates) Rate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	f.calls++
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	return f.rate, nil
}

type captureAudit struct {
	logs []shared.AuditLog
}

func (c *captureAudit) Record(_ context.Context, log shared.AuditLog) error {
	c.logs = append(c.logs, log)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(repo *mockRepository) (*Service, *captureAudit) {
	audit := &captureAudit{}
	svc := NewService(repo, &fixedRates{rate: decimal.NewFromInt(1)}, audit, "USD")
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return svc, audit
}

func salesPosting() PostingInput {
	return PostingInput{
		EntityID:    1,
		Description: "Invoice INV-000042",
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PostedBy:    7,
		Refs:        []Ref{{Kind: RefKindSalesInvoice, ID: "42"}},
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: dec("118.00")},
			{AccountID: 20, Credit: dec("100.00")},
			{AccountID: 30, Credit: dec("18.00")},
		},
	}
}

func TestPostBalancedEntry(t *testing.T) {
	repo := newMockRepository()
	svc, audit := newTestService(repo)

	entry, err := svc.Post(context.Background(), salesPosting())
	require.NoError(t, err)

	require.Len(t, entry.Lines, 3)
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range entry.Lines {
		if line.Debit.IsPositive() {
			debits = debits.Add(line.BaseAmount)
		} else {
			credits = credits.Add(line.BaseAmount)
		}
	}
	assert.True(t, debits.Sub(credits).Abs().LessThanOrEqual(Epsilon),
		"debits %s should equal credits %s", debits, credits)
	assert.True(t, debits.Equal(dec("118.00")))
	assert.Equal(t, JournalStatusPosted, entry.Status)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "journal.post", audit.logs[0].Action)
}

func TestPostUnbalancedEntryRejected(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(repo)

	input := PostingInput{
		EntityID:    1,
		Description: "bad entry",
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PostedBy:    7,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: dec("100.00")},
			{AccountID: 20, Credit: dec("90.00")},
		},
	}
	_, err := svc.Post(context.Background(), input)

	var unbalanced *UnbalancedEntryError
	require.ErrorAs(t, err, &unbalanced)
	assert.True(t, unbalanced.Imbalance.Equal(dec("10.00")), "imbalance %s", unbalanced.Imbalance)
	assert.Empty(t, repo.entries, "nothing may persist on rejection")
}

func TestPostDefaultsToBaseCurrency(t *testing.T) {
	repo := newMockRepository()
	rates := &fixedRates{rate: decimal.NewFromInt(2)}
	svc := NewService(repo, rates, nil, "USD")

	entry, err := svc.Post(context.Background(), salesPosting())
	require.NoError(t, err)
	assert.Equal(t, "USD", entry.Currency)
	// Identity conversion keeps native and base amounts equal.
	assert.True(t, entry.Lines[0].BaseAmount.Equal(dec("118.00")))
}

func TestPostConvertsToBaseCurrency(t *testing.T) {
	repo := newMockRepository()
	rates := &fixedRates{rate: dec("1.10")}
	svc := NewService(repo, rates, nil, "USD")

	input := PostingInput{
		EntityID:    1,
		Description: "EUR sale",
		Currency:    "EUR",
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PostedBy:    7,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: dec("100.00")},
			{AccountID: 20, Credit: dec("100.00")},
		},
	}
	entry, err := svc.Post(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, entry.Lines[0].BaseAmount.Equal(dec("110.00")),
		"base amount %s", entry.Lines[0].BaseAmount)
	// The native amounts stay in the posting currency.
	assert.True(t, entry.Lines[0].Debit.Equal(dec("100.00")))
	assert.Equal(t, 1, rates.calls, "one rate lookup per posting")
}

func TestPostRequiresExactlyOneSide(t *testing.T) {
	svc, _ := newTestService(newMockRepository())

	input := salesPosting()
	input.Lines[0].Credit = dec("1.00")
	_, err := svc.Post(context.Background(), input)
	require.Error(t, err)

	input = salesPosting()
	input.Lines[0].Debit = decimal.Zero
	_, err = svc.Post(context.Background(), input)
	require.Error(t, err)
}

func TestPostRejectsEmptyLines(t *testing.T) {
	svc, _ := newTestService(newMockRepository())
	input := salesPosting()
	input.Lines = nil
	_, err := svc.Post(context.Background(), input)
	require.ErrorIs(t, err, ErrNoLines)
}

func TestReverseSwapsSides(t *testing.T) {
	repo := newMockRepository()
	svc, audit := newTestService(repo)

	entry, err := svc.Post(context.Background(), salesPosting())
	require.NoError(t, err)

	reversal, err := svc.Reverse(context.Background(), entry.ID, 9, "")
	require.NoError(t, err)

	require.Len(t, reversal.Lines, 3)
	assert.True(t, reversal.Lines[0].Credit.Equal(dec("118.00")), "AR debit becomes credit")
	assert.True(t, reversal.Lines[1].Debit.Equal(dec("100.00")))
	require.Len(t, reversal.Refs, 1)
	assert.Equal(t, RefKindReversal, reversal.Refs[0].Kind)

	assert.Equal(t, JournalStatusReversed, repo.entries[entry.ID].Status)
	require.Len(t, audit.logs, 2)
	assert.Equal(t, "journal.reverse", audit.logs[1].Action)
}

func TestReverseTwiceFails(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestService(repo)

	entry, err := svc.Post(context.Background(), salesPosting())
	require.NoError(t, err)

	_, err = svc.Reverse(context.Background(), entry.ID, 9, "")
	require.NoError(t, err)

	_, err = svc.Reverse(context.Background(), entry.ID, 9, "")
	require.ErrorIs(t, err, ErrAlreadyReversed)
}

func TestReverseMissingEntry(t *testing.T) {
	svc, _ := newTestService(newMockRepository())
	_, err := svc.Reverse(context.Background(), 404, 9, "")
	require.ErrorIs(t, err, ErrEntryNotFound)
}
