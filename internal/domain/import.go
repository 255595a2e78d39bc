package domain

import (
	"time"
)

// ImportStatus is the lifecycle status of a StatementImport.
// Draft -> Processing -> {Completed, Failed}; Completed and Failed are
// re-enterable into Processing on retry. Processing is the only state that
// serializes access (see ImportStore.TryTransition).
type ImportStatus string

const (
	ImportStatusDraft      ImportStatus = "Draft"
	ImportStatusProcessing ImportStatus = "Processing"
	ImportStatusCompleted  ImportStatus = "Completed"
	ImportStatusFailed     ImportStatus = "Failed"
)

// AcquirableStatuses are the statuses from which a processing cycle may start.
func AcquirableStatuses() []ImportStatus {
	return []ImportStatus{ImportStatusDraft, ImportStatusCompleted, ImportStatusFailed}
}

// TransactionStatus is the per-row outcome status of a PostedTransaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusValidated TransactionStatus = "Validated"
	TransactionStatusPosted    TransactionStatus = "Posted"
	TransactionStatusError     TransactionStatus = "Error"
)

// StatementImport is one statement import job. It exclusively owns its
// Transactions rows; Provider and chart-of-accounts data are referenced by
// name and never mutated by the pipeline.
type StatementImport struct {
	ID              string    `json:"id"`
	Company         string    `json:"company"`
	Provider        string    `json:"provider"`
	StatementFile   string    `json:"statement_file"` // blob URI, e.g. gs://bucket/object
	StatementPeriod string    `json:"statement_period,omitempty"`
	ImportDate      time.Time `json:"import_date"`

	Status ImportStatus `json:"status"`

	// PreviewText holds the extracted text preview persisted by the extract
	// step; ParseWithAI requires it to be present.
	PreviewText   string `json:"preview_text,omitempty"`
	PreviewTables int    `json:"preview_tables,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`

	Transactions []PostedTransaction `json:"transactions,omitempty"`

	TransactionsFound int `json:"transactions_found"`
	PostingsCreated   int `json:"postings_created"`

	// ErrorLog holds the raw diagnostic of the last pipeline-level failure.
	// It is internal detail and never rendered to users directly.
	ErrorLog string `json:"error_log,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshCounters recomputes the derived counters before save.
func (si *StatementImport) RefreshCounters() {
	si.TransactionsFound = len(si.Transactions)
	posted := 0
	for _, txn := range si.Transactions {
		if txn.Status == TransactionStatusPosted && txn.PostingRef != "" {
			posted++
		}
	}
	si.PostingsCreated = posted
}

// PostedTransaction is one persisted transaction row owned by a
// StatementImport. Invariant: Status == Posted implies PostingRef != ""; a
// row violating this is a data-consistency error and must be surfaced, never
// silently repaired.
type PostedTransaction struct {
	Date          time.Time         `json:"date"`
	Description   string            `json:"description"`
	Currency      string            `json:"currency"`
	AccountDebit  string            `json:"account_debit"`
	DebitAmount   float64           `json:"debit_amount"`
	AccountCredit string            `json:"account_credit"`
	CreditAmount  float64           `json:"credit_amount"`
	Status        TransactionStatus `json:"status"`
	PostingRef    string            `json:"posting_ref,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

// TransactionCandidate is one raw parsed record prior to validation. Amounts
// are pointers because absence and zero must be distinguished; the date stays
// a raw string until the validator parses it.
type TransactionCandidate struct {
	Date          string
	Description   string
	Currency      string
	AccountDebit  string
	DebitAmount   *float64
	AccountCredit string
	CreditAmount  *float64
}
