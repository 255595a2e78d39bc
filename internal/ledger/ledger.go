// Package ledger holds the double-entry posting book and the chart-of-accounts
// lookup the import pipeline posts against.
package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// StaticAccounts is a map-backed chart of accounts keyed by account name.
type StaticAccounts struct {
	accounts map[string]domain.Account
}

func NewStaticAccounts(accounts []domain.Account) *StaticAccounts {
	byName := make(map[string]domain.Account, len(accounts))
	for _, acc := range accounts {
		byName[acc.Name] = acc
	}
	return &StaticAccounts{accounts: byName}
}

func (s *StaticAccounts) GetAccount(ctx context.Context, name string) (*domain.Account, error) {
	acc, ok := s.accounts[name]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", name, domain.ErrAccountNotFound)
	}
	return &acc, nil
}

// Book is an in-memory posting ledger. Every accepted posting is balanced
// and references two distinct, enabled, company-matching leaf accounts.
type Book struct {
	mu        sync.Mutex
	accounts  *StaticAccounts
	tolerance float64
	postings  map[string]domain.Posting
}

// NewBook builds a ledger over the given chart of accounts. Postings whose
// debit and credit differ by more than tolerance are rejected.
func NewBook(accounts *StaticAccounts, tolerance float64) *Book {
	return &Book{
		accounts:  accounts,
		tolerance: tolerance,
		postings:  make(map[string]domain.Posting),
	}
}

// CreatePosting validates both legs and records the posting, returning its
// reference. Validation failures carry the domain sentinel for the first
// violated invariant.
func (b *Book) CreatePosting(ctx context.Context, p domain.Posting) (string, error) {
	if p.DebitAmount <= 0 || p.CreditAmount <= 0 {
		return "", fmt.Errorf("posting amounts must be positive: %w", domain.ErrUnbalancedTransaction)
	}
	if math.Abs(p.DebitAmount-p.CreditAmount) > b.tolerance {
		return "", fmt.Errorf("debit %.2f and credit %.2f do not balance: %w",
			p.DebitAmount, p.CreditAmount, domain.ErrUnbalancedTransaction)
	}
	if p.AccountDebit == p.AccountCredit {
		return "", fmt.Errorf("debit and credit legs reference the same account %q: %w",
			p.AccountDebit, domain.ErrUnbalancedTransaction)
	}

	for _, name := range []string{p.AccountDebit, p.AccountCredit} {
		if err := b.checkAccount(ctx, name, p.Company); err != nil {
			return "", err
		}
	}

	ref := "PST-" + uuid.NewString()

	b.mu.Lock()
	b.postings[ref] = p
	b.mu.Unlock()

	return ref, nil
}

// GetPosting returns a recorded posting by reference.
func (b *Book) GetPosting(ref string) (*domain.Posting, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.postings[ref]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Len reports the number of recorded postings.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.postings)
}

func (b *Book) checkAccount(ctx context.Context, name, company string) error {
	acc, err := b.accounts.GetAccount(ctx, name)
	if err != nil {
		return err
	}
	if acc.IsGroup {
		return fmt.Errorf("account %q: %w", name, domain.ErrAccountIsGroup)
	}
	if company != "" && acc.Company != company {
		return fmt.Errorf("account %q belongs to %q, not %q: %w",
			name, acc.Company, company, domain.ErrAccountCompanyMismatch)
	}
	if acc.Disabled {
		return fmt.Errorf("account %q: %w", name, domain.ErrAccountDisabled)
	}
	return nil
}
