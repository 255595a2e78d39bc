package importer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// dateLayouts are tried in order when parsing candidate dates. The prompt
// demands ISO dates but statements leak their native formats.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"02.01.2006",
	"02/01/2006",
}

// ValidateCandidates enforces the per-transaction invariants and filters the
// batch. Each check skips the row with a diagnostic rather than aborting the
// batch; cheap structural checks run before the account-existence lookup so
// rows already known to be invalid cost no I/O. Returns the accepted rows in
// Pending status, or ErrNoValidTransactions when nothing survives.
func ValidateCandidates(ctx context.Context, candidates []domain.TransactionCandidate, company string, accounts AccountLookup, cfg Config) ([]domain.PostedTransaction, []string, error) {
	accepted := make([]domain.PostedTransaction, 0, len(candidates))
	var diagnostics []string

	skip := func(idx int, format string, args ...any) {
		diagnostics = append(diagnostics,
			fmt.Sprintf("Transaction %d: %s, skipping", idx, fmt.Sprintf(format, args...)))
	}

	for i, cand := range candidates {
		idx := i + 1

		date, ok := parseDate(cand.Date)
		if !ok {
			skip(idx, "missing or invalid date %q", cand.Date)
			continue
		}

		description := cand.Description
		if description == "" {
			// The only field with a non-empty fallback.
			description = fmt.Sprintf("Transaction %d", idx)
		}

		if cand.DebitAmount == nil || cand.CreditAmount == nil ||
			*cand.DebitAmount <= 0 || *cand.CreditAmount <= 0 {
			skip(idx, "debit and credit amounts must be present and greater than zero")
			continue
		}
		debit, credit := *cand.DebitAmount, *cand.CreditAmount

		if math.Abs(debit-credit) > cfg.BalanceTolerance {
			skip(idx, "unbalanced transaction (debit %.2f, credit %.2f)", debit, credit)
			continue
		}

		if cand.Currency == "" {
			skip(idx, "missing currency")
			continue
		}

		if cand.AccountDebit == "" {
			skip(idx, "missing debit account")
			continue
		}
		if cand.AccountCredit == "" {
			skip(idx, "missing credit account")
			continue
		}

		// Account existence last: it is the only check that touches storage.
		if ok, err := accountExists(ctx, accounts, cand.AccountDebit, company); err != nil {
			return nil, diagnostics, fmt.Errorf("validate transaction %d: %w", idx, err)
		} else if !ok {
			skip(idx, "debit account %q does not exist in the chart of accounts for %s", cand.AccountDebit, company)
			continue
		}
		if ok, err := accountExists(ctx, accounts, cand.AccountCredit, company); err != nil {
			return nil, diagnostics, fmt.Errorf("validate transaction %d: %w", idx, err)
		} else if !ok {
			skip(idx, "credit account %q does not exist in the chart of accounts for %s", cand.AccountCredit, company)
			continue
		}

		accepted = append(accepted, domain.PostedTransaction{
			Date:          date,
			Description:   description,
			Currency:      cand.Currency,
			AccountDebit:  cand.AccountDebit,
			DebitAmount:   debit,
			AccountCredit: cand.AccountCredit,
			CreditAmount:  credit,
			Status:        domain.TransactionStatusPending,
		})
	}

	if len(accepted) == 0 {
		return nil, diagnostics, domain.ErrNoValidTransactions
	}
	return accepted, diagnostics, nil
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func accountExists(ctx context.Context, accounts AccountLookup, name, company string) (bool, error) {
	acc, err := accounts.GetAccount(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return acc.Company == company, nil
}
