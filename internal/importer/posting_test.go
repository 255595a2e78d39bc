package importer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// mockPoster fails for configured debit accounts and records created
// postings.
type mockPoster struct {
	failFor map[string]error
	created []domain.Posting
}

func (m *mockPoster) CreatePosting(ctx context.Context, p domain.Posting) (string, error) {
	if err, ok := m.failFor[p.AccountDebit]; ok {
		return "", err
	}
	m.created = append(m.created, p)
	return fmt.Sprintf("PST-%04d", len(m.created)), nil
}

func pendingRow(debitAccount string) domain.PostedTransaction {
	return domain.PostedTransaction{
		Date:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Description:   "row " + debitAccount,
		Currency:      "USD",
		AccountDebit:  debitAccount,
		DebitAmount:   100,
		AccountCredit: "Dividend - NN",
		CreditAmount:  100,
		Status:        domain.TransactionStatusPending,
	}
}

func TestPostTransactions_PartialFailureIsolation(t *testing.T) {
	imp := &domain.StatementImport{ID: "imp-1", Company: "Noreli North"}
	for i := 0; i < 5; i++ {
		imp.Transactions = append(imp.Transactions, pendingRow(fmt.Sprintf("Acc-%d", i)))
	}

	poster := &mockPoster{failFor: map[string]error{
		"Acc-2": fmt.Errorf("account %q: %w", "Acc-2", domain.ErrAccountDisabled),
	}}

	report := PostTransactions(context.Background(), imp, poster, zerolog.Nop())

	if !report.Success {
		t.Error("batch success must hold despite one failed row")
	}
	if report.Created != 4 || report.Attempted != 5 {
		t.Errorf("created/attempted = %d/%d, want 4/5", report.Created, report.Attempted)
	}
	if len(report.Errors) != 1 || report.Errors[0].Row != 3 {
		t.Fatalf("errors = %+v, want one error for row 3", report.Errors)
	}

	failed := imp.Transactions[2]
	if failed.Status != domain.TransactionStatusError || failed.ErrorMessage == "" {
		t.Errorf("failed row = %+v, want Error status with message", failed)
	}
	for _, i := range []int{0, 1, 3, 4} {
		txn := imp.Transactions[i]
		if txn.Status != domain.TransactionStatusPosted || txn.PostingRef == "" {
			t.Errorf("row %d = %+v, want Posted with reference", i+1, txn)
		}
	}
}

func TestPostTransactions_Idempotence(t *testing.T) {
	imp := &domain.StatementImport{ID: "imp-1", Company: "Noreli North"}
	for i := 0; i < 3; i++ {
		row := pendingRow(fmt.Sprintf("Acc-%d", i))
		row.Status = domain.TransactionStatusPosted
		row.PostingRef = fmt.Sprintf("PST-%04d", i+1)
		imp.Transactions = append(imp.Transactions, row)
	}

	poster := &mockPoster{}
	report := PostTransactions(context.Background(), imp, poster, zerolog.Nop())

	if report.Created != 0 || report.Attempted != 0 {
		t.Errorf("created/attempted = %d/%d, want 0/0", report.Created, report.Attempted)
	}
	if len(poster.created) != 0 {
		t.Errorf("re-run created %d new postings, want 0", len(poster.created))
	}
	if len(report.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", report.Errors)
	}
}

func TestPostTransactions_PostedWithoutReference(t *testing.T) {
	row := pendingRow("Acc-0")
	row.Status = domain.TransactionStatusPosted
	row.PostingRef = ""
	imp := &domain.StatementImport{ID: "imp-1", Transactions: []domain.PostedTransaction{row}}

	poster := &mockPoster{}
	report := PostTransactions(context.Background(), imp, poster, zerolog.Nop())

	if len(report.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one consistency error", report.Errors)
	}
	if report.Attempted != 0 || len(poster.created) != 0 {
		t.Error("a Posted-without-reference row must never be re-posted")
	}
	// Never silently repaired.
	if imp.Transactions[0].Status != domain.TransactionStatusPosted {
		t.Error("row status must be left untouched")
	}
}

func TestPostTransactions_OrphanReferenceSkipped(t *testing.T) {
	row := pendingRow("Acc-0")
	row.PostingRef = "PST-9999" // posting exists but row never marked Posted
	imp := &domain.StatementImport{ID: "imp-1", Transactions: []domain.PostedTransaction{row}}

	poster := &mockPoster{}
	report := PostTransactions(context.Background(), imp, poster, zerolog.Nop())

	if report.Attempted != 0 || len(poster.created) != 0 {
		t.Error("orphaned reference must be skipped to avoid double-posting")
	}
	if len(report.Errors) != 0 {
		t.Errorf("orphan skip is a warning, not an error: %+v", report.Errors)
	}
}

func TestPostTransactions_ErrorRowsSkippedSilently(t *testing.T) {
	row := pendingRow("Acc-0")
	row.Status = domain.TransactionStatusError
	row.ErrorMessage = "failed last cycle"
	imp := &domain.StatementImport{ID: "imp-1", Transactions: []domain.PostedTransaction{row}}

	report := PostTransactions(context.Background(), imp, &mockPoster{}, zerolog.Nop())
	if report.Attempted != 0 || len(report.Errors) != 0 {
		t.Errorf("Error rows are already surfaced; got %+v", report)
	}
}

func TestPostTransactions_SuccessClearsPriorError(t *testing.T) {
	row := pendingRow("Acc-0")
	row.ErrorMessage = "stale failure from an earlier cycle"
	imp := &domain.StatementImport{ID: "imp-1", Transactions: []domain.PostedTransaction{row}}

	PostTransactions(context.Background(), imp, &mockPoster{}, zerolog.Nop())
	if imp.Transactions[0].ErrorMessage != "" {
		t.Error("a successful posting must clear the prior error message")
	}
}
