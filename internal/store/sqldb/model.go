package sqldb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// statementImportRow is the database projection of a StatementImport.
// Transaction rows are serialized into one JSON column; they are exclusively
// owned by their import and always read and written as a unit.
type statementImportRow struct {
	ID              string    `gorm:"primary_key;size:64" json:"id"`
	Company         string    `gorm:"size:140;not null" json:"company"`
	Provider        string    `gorm:"size:140;not null" json:"provider"`
	StatementFile   string    `gorm:"size:512;not null" json:"statement_file"`
	StatementPeriod string    `gorm:"size:64" json:"statement_period"`
	ImportDate      time.Time `json:"import_date"`

	Status string `gorm:"size:20;not null;index" json:"status"`

	PreviewText   string `gorm:"type:text" json:"preview_text"`
	PreviewTables int    `json:"preview_tables"`
	PageCount     int    `json:"page_count"`

	Transactions string `gorm:"type:text" json:"transactions"`

	TransactionsFound int `json:"transactions_found"`
	PostingsCreated   int `json:"postings_created"`

	ErrorLog string `gorm:"type:text" json:"error_log"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (statementImportRow) TableName() string {
	return "statement_imports"
}

func toRow(imp *domain.StatementImport) (*statementImportRow, error) {
	txns, err := json.Marshal(imp.Transactions)
	if err != nil {
		return nil, fmt.Errorf("sqldb: marshal transactions: %w", err)
	}
	return &statementImportRow{
		ID:                imp.ID,
		Company:           imp.Company,
		Provider:          imp.Provider,
		StatementFile:     imp.StatementFile,
		StatementPeriod:   imp.StatementPeriod,
		ImportDate:        imp.ImportDate,
		Status:            string(imp.Status),
		PreviewText:       imp.PreviewText,
		PreviewTables:     imp.PreviewTables,
		PageCount:         imp.PageCount,
		Transactions:      string(txns),
		TransactionsFound: imp.TransactionsFound,
		PostingsCreated:   imp.PostingsCreated,
		ErrorLog:          imp.ErrorLog,
		CreatedAt:         imp.CreatedAt,
		UpdatedAt:         imp.UpdatedAt,
	}, nil
}

func fromRow(row *statementImportRow) (*domain.StatementImport, error) {
	imp := &domain.StatementImport{
		ID:                row.ID,
		Company:           row.Company,
		Provider:          row.Provider,
		StatementFile:     row.StatementFile,
		StatementPeriod:   row.StatementPeriod,
		ImportDate:        row.ImportDate,
		Status:            domain.ImportStatus(row.Status),
		PreviewText:       row.PreviewText,
		PreviewTables:     row.PreviewTables,
		PageCount:         row.PageCount,
		TransactionsFound: row.TransactionsFound,
		PostingsCreated:   row.PostingsCreated,
		ErrorLog:          row.ErrorLog,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.Transactions != "" {
		if err := json.Unmarshal([]byte(row.Transactions), &imp.Transactions); err != nil {
			return nil, fmt.Errorf("sqldb: unmarshal transactions for %s: %w", row.ID, err)
		}
	}
	return imp, nil
}

// providerRow persists a provider configuration with its accounting rules as
// a JSON column.
type providerRow struct {
	Name            string `gorm:"primary_key;size:140" json:"name"`
	Enabled         bool   `json:"enabled"`
	PromptTemplate  string `gorm:"type:text" json:"prompt_template"`
	AccountingRules string `gorm:"type:text" json:"accounting_rules"`
}

func (providerRow) TableName() string {
	return "statement_providers"
}

// companyRow persists a company record.
type companyRow struct {
	Name string `gorm:"primary_key;size:140" json:"name"`
	Abbr string `gorm:"size:10" json:"abbr"`
}

func (companyRow) TableName() string {
	return "companies"
}
