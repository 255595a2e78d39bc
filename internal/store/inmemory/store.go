// Package inmemory is an in-memory implementation of the import and provider
// stores. It is safe for concurrent use; data is lost on restart, so it serves
// development wiring and tests rather than production deployments.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// Store keeps imports, providers and companies in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	imports   map[string]*domain.StatementImport
	providers map[string]*domain.Provider
	companies map[string]*domain.Company
}

func NewStore() *Store {
	return &Store{
		imports:   make(map[string]*domain.StatementImport),
		providers: make(map[string]*domain.Provider),
		companies: make(map[string]*domain.Company),
	}
}

// GetImport retrieves an import by ID. The returned value is a copy; callers
// persist changes through SaveImport.
func (s *Store) GetImport(ctx context.Context, id string) (*domain.StatementImport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	imp, exists := s.imports[id]
	if !exists {
		return nil, fmt.Errorf("import %s: %w", id, domain.ErrImportNotFound)
	}
	return copyImport(imp), nil
}

// SaveImport saves or updates an import.
func (s *Store) SaveImport(ctx context.Context, imp *domain.StatementImport) error {
	if imp.ID == "" {
		return fmt.Errorf("import ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyImport(imp)
	stored.UpdatedAt = time.Now().UTC()
	s.imports[imp.ID] = stored

	return nil
}

// TryTransition performs the conditional status transition under the store
// lock, so concurrent callers for the same import serialize here and exactly
// one of them observes a qualifying status.
func (s *Store) TryTransition(ctx context.Context, id string, from []domain.ImportStatus, to domain.ImportStatus) (bool, domain.ImportStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imp, exists := s.imports[id]
	if !exists {
		return false, "", fmt.Errorf("import %s: %w", id, domain.ErrImportNotFound)
	}

	for _, status := range from {
		if imp.Status == status {
			imp.Status = to
			imp.UpdatedAt = time.Now().UTC()
			return true, imp.Status, nil
		}
	}
	return false, imp.Status, nil
}

// PutProvider registers or replaces a provider configuration.
func (s *Store) PutProvider(p *domain.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.providers[p.Name] = &cp
}

func (s *Store) GetProvider(ctx context.Context, name string) (*domain.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider %s: %w", name, domain.ErrProviderNotFound)
	}
	cp := *p
	cp.AccountingRules = append([]domain.AccountingRule(nil), p.AccountingRules...)
	return &cp, nil
}

// PutCompany registers or replaces a company.
func (s *Store) PutCompany(c *domain.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.companies[c.Name] = &cp
}

func (s *Store) GetCompany(ctx context.Context, name string) (*domain.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.companies[name]
	if !exists {
		return nil, fmt.Errorf("company %s: %w", name, domain.ErrCompanyNotFound)
	}
	cp := *c
	return &cp, nil
}

// copyImport clones an import including its transaction rows, so neither side
// can mutate the other through the shared slice.
func copyImport(imp *domain.StatementImport) *domain.StatementImport {
	cp := *imp
	cp.Transactions = append([]domain.PostedTransaction(nil), imp.Transactions...)
	return &cp
}
