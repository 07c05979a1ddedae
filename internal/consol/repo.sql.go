package consol

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads posted journal lines for consolidation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountBalances sums signed base-currency movement per account for one
// entity over [start, end] inclusive. Reversed originals and their reversal
// entries are both included and cancel out.
func (r *Repository) AccountBalances(ctx context.Context, entityID int64, start, end time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `
SELECT a.id, a.name, a.type, a.sub_type, a.is_intercompany,
       COALESCE(SUM(CASE WHEN l.debit > 0 THEN l.base_amount ELSE -l.base_amount END), 0)::text
FROM journal_lines l
JOIN journal_entries e ON e.id = l.je_id
JOIN accounts a ON a.id = l.account_id
WHERE e.entity_id = $1 AND e.date >= $2 AND e.date <= $3
GROUP BY a.id, a.name, a.type, a.sub_type, a.is_intercompany
ORDER BY a.id`, entityID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var bal AccountBalance
		var raw string
		if err := rows.Scan(&bal.AccountID, &bal.AccountName, &bal.AccountType, &bal.AccountSubType, &bal.IsInterCo, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		bal.Amount = amount
		balances = append(balances, bal)
	}
	return balances, rows.Err()
}
