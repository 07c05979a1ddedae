package consol

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RepositoryPort abstracts the read-only posting scans the engine needs.
type RepositoryPort interface {
	AccountBalances(ctx context.Context, entityID int64, start, end time.Time) ([]AccountBalance, error)
}

// Config tunes engine behaviour.
type Config struct {
	// StrictInterCompany turns an unmatched intercompany position into a hard
	// failure instead of a logged warning.
	StrictInterCompany bool
}

// Service aggregates posted entries across entities into a consolidated trial
// balance with intercompany elimination. Read-only: it never writes.
type Service struct {
	repo     RepositoryPort
	logger   *slog.Logger
	strictIC bool
}

// NewService constructs the consolidation engine.
func NewService(repo RepositoryPort, logger *slog.Logger, cfg Config) *Service {
	return &Service{repo: repo, logger: logger, strictIC: cfg.StrictInterCompany}
}

// TrialBalance builds the consolidated trial balance over [start, end]
// inclusive for the selected entities. Entity scans are independent read-only
// range queries and run concurrently.
func (s *Service) TrialBalance(ctx context.Context, entityIDs []int64, start, end time.Time) (TrialBalanceResult, error) {
	if s == nil || s.repo == nil {
		return TrialBalanceResult{}, errors.New("consol: service not initialised")
	}
	if len(entityIDs) == 0 {
		return TrialBalanceResult{}, ErrNoEntities
	}
	if start.After(end) {
		return TrialBalanceResult{}, ErrInvalidRange
	}

	perEntity := make([][]AccountBalance, len(entityIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, entityID := range entityIDs {
		i, entityID := i, entityID
		g.Go(func() error {
			balances, err := s.repo.AccountBalances(gctx, entityID, start, end)
			if err != nil {
				return err
			}
			perEntity[i] = balances
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TrialBalanceResult{}, err
	}

	merged := make(map[int64]AccountBalance)
	for _, balances := range perEntity {
		for _, bal := range balances {
			acc, ok := merged[bal.AccountID]
			if !ok {
				merged[bal.AccountID] = bal
				continue
			}
			acc.Amount = acc.Amount.Add(bal.Amount)
			merged[bal.AccountID] = acc
		}
	}

	result := TrialBalanceResult{EntityIDs: entityIDs, StartDate: start, EndDate: end}
	externalNet := decimal.Zero
	interCoNet := decimal.Zero
	for _, bal := range merged {
		if bal.IsInterCo {
			interCoNet = interCoNet.Add(bal.Amount)
			result.Elimination.Accounts = append(result.Elimination.Accounts, EliminationLine{
				AccountID:   bal.AccountID,
				AccountName: bal.AccountName,
				Balance:     bal.Amount,
			})
			continue
		}
		externalNet = externalNet.Add(bal.Amount)
		result.Lines = append(result.Lines, TrialBalanceLine{
			AccountID:      bal.AccountID,
			AccountName:    bal.AccountName,
			AccountType:    bal.AccountType,
			AccountSubType: bal.AccountSubType,
			Balance:        bal.Amount.Round(2),
		})
	}
	result.Elimination.NetBalance = interCoNet

	if interCoNet.Abs().GreaterThan(Epsilon) {
		if s.strictIC {
			return TrialBalanceResult{}, &InterCompanyImbalanceError{Net: interCoNet}
		}
		s.log().Warn("intercompany accounts do not net to zero; upstream postings were not matched pairs",
			slog.String("net", interCoNet.String()),
			slog.Any("entities", entityIDs))
	}

	if externalNet.Abs().GreaterThan(Epsilon) {
		return TrialBalanceResult{}, &UnbalancedConsolidationError{Net: externalNet}
	}

	sortLines(result.Lines)
	sort.Slice(result.Elimination.Accounts, func(i, j int) bool {
		return result.Elimination.Accounts[i].AccountName < result.Elimination.Accounts[j].AccountName
	})
	s.log().Info("consolidated trial balance built",
		slog.Any("entities", entityIDs),
		slog.Int("lines", len(result.Lines)),
		slog.Int("eliminated_accounts", len(result.Elimination.Accounts)))
	return result, nil
}

// sortLines orders by account type then name. Display convenience only; the
// trial balance contract promises no ordering.
func sortLines(lines []TrialBalanceLine) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AccountType != lines[j].AccountType {
			return lines[i].AccountType < lines[j].AccountType
		}
		return lines[i].AccountName < lines[j].AccountName
	})
}

func (s *Service) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger.With(slog.String("component", "consol_engine"))
	}
	return slog.Default().With(slog.String("component", "consol_engine"))
}
