// Package sqldb is the gorm-backed implementation of the import and provider
// stores. The conditional status transition is one UPDATE with a status guard
// in the WHERE clause, so the acquire race is decided by the database.
package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// Store persists imports, providers and companies in a SQL database.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open database: %w", err)
	}
	if err := db.AutoMigrate(&statementImportRow{}, &providerRow{}, &companyRow{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("sqldb: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection, used by tests.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetImport(ctx context.Context, id string) (*domain.StatementImport, error) {
	var row statementImportRow
	if err := s.db.Where("id = ?", id).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("import %s: %w", id, domain.ErrImportNotFound)
		}
		return nil, fmt.Errorf("sqldb: load import %s: %w", id, err)
	}
	return fromRow(&row)
}

func (s *Store) SaveImport(ctx context.Context, imp *domain.StatementImport) error {
	if imp.ID == "" {
		return fmt.Errorf("import ID is required")
	}

	row, err := toRow(imp)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()

	var existing statementImportRow
	err = s.db.Select("id").Where("id = ?", imp.ID).First(&existing).Error
	switch {
	case gorm.IsRecordNotFoundError(err):
		if err := s.db.Create(row).Error; err != nil {
			return fmt.Errorf("sqldb: create import %s: %w", imp.ID, err)
		}
	case err != nil:
		return fmt.Errorf("sqldb: check import %s: %w", imp.ID, err)
	default:
		if err := s.db.Save(row).Error; err != nil {
			return fmt.Errorf("sqldb: update import %s: %w", imp.ID, err)
		}
	}
	return nil
}

// TryTransition issues a single conditional UPDATE. RowsAffected tells the
// winner from the losers; losers get the status observed by a follow-up read.
func (s *Store) TryTransition(ctx context.Context, id string, from []domain.ImportStatus, to domain.ImportStatus) (bool, domain.ImportStatus, error) {
	statusList := make([]string, len(from))
	for i, status := range from {
		statusList[i] = string(status)
	}

	res := s.db.Model(&statementImportRow{}).
		Where("id = ? AND status IN (?)", id, statusList).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, "", fmt.Errorf("sqldb: transition import %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, to, nil
	}

	var row statementImportRow
	if err := s.db.Select("status").Where("id = ?", id).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return false, "", fmt.Errorf("import %s: %w", id, domain.ErrImportNotFound)
		}
		return false, "", fmt.Errorf("sqldb: read import %s after lost transition: %w", id, err)
	}
	return false, domain.ImportStatus(row.Status), nil
}

func (s *Store) GetProvider(ctx context.Context, name string) (*domain.Provider, error) {
	var row providerRow
	if err := s.db.Where("name = ?", name).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("provider %s: %w", name, domain.ErrProviderNotFound)
		}
		return nil, fmt.Errorf("sqldb: load provider %s: %w", name, err)
	}

	p := &domain.Provider{
		Name:           row.Name,
		Enabled:        row.Enabled,
		PromptTemplate: row.PromptTemplate,
	}
	if row.AccountingRules != "" {
		if err := json.Unmarshal([]byte(row.AccountingRules), &p.AccountingRules); err != nil {
			return nil, fmt.Errorf("sqldb: unmarshal accounting rules for %s: %w", name, err)
		}
	}
	return p, nil
}

// SaveProvider creates or replaces a provider configuration.
func (s *Store) SaveProvider(ctx context.Context, p *domain.Provider) error {
	rules, err := json.Marshal(p.AccountingRules)
	if err != nil {
		return fmt.Errorf("sqldb: marshal accounting rules: %w", err)
	}
	row := &providerRow{
		Name:            p.Name,
		Enabled:         p.Enabled,
		PromptTemplate:  p.PromptTemplate,
		AccountingRules: string(rules),
	}
	if err := s.db.Save(row).Error; err != nil {
		return fmt.Errorf("sqldb: save provider %s: %w", p.Name, err)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, name string) (*domain.Company, error) {
	var row companyRow
	if err := s.db.Where("name = ?", name).First(&row).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, fmt.Errorf("company %s: %w", name, domain.ErrCompanyNotFound)
		}
		return nil, fmt.Errorf("sqldb: load company %s: %w", name, err)
	}
	return &domain.Company{Name: row.Name, Abbr: row.Abbr}, nil
}

// SaveCompany creates or replaces a company record.
func (s *Store) SaveCompany(ctx context.Context, c *domain.Company) error {
	if err := s.db.Save(&companyRow{Name: c.Name, Abbr: c.Abbr}).Error; err != nil {
		return fmt.Errorf("sqldb: save company %s: %w", c.Name, err)
	}
	return nil
}
