package importer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// PostingError is one per-row failure surfaced by the posting loop.
type PostingError struct {
	Row         int    `json:"row"`
	Transaction string `json:"transaction"`
	Message     string `json:"message"`
}

// PostingReport summarizes one posting run over an import's rows.
type PostingReport struct {
	Success     bool           `json:"success"`
	Created     int            `json:"created"`
	Attempted   int            `json:"attempted"`
	PostingRefs []string       `json:"posting_refs"`
	Errors      []PostingError `json:"errors"`
}

// PostTransactions walks the import's rows, creates one balanced ledger
// posting per eligible row, and mutates row status in place. Rows are
// classified before acting:
//
//   - Posted with a reference: already posted, idempotent no-op.
//   - Posted without a reference: data-consistency error, recorded, never
//     re-posted.
//   - Reference present while not Posted: orphan, skipped to avoid
//     double-posting.
//   - Error: skipped silently, it already failed and was surfaced.
//   - Pending/Validated: eligible.
//
// One row's failure never aborts the batch; the caller persists the updated
// row set in one unit afterwards. Rows are processed sequentially since each
// posting mutates ledger state and each row's Posted-implies-reference
// invariant must not interleave with other rows' partial writes.
func PostTransactions(ctx context.Context, imp *domain.StatementImport, poster LedgerPoster, log zerolog.Logger) *PostingReport {
	report := &PostingReport{
		Success:     true,
		PostingRefs: []string{},
		Errors:      []PostingError{},
	}

	for i := range imp.Transactions {
		txn := &imp.Transactions[i]
		row := i + 1

		if txn.Status == domain.TransactionStatusPosted {
			if txn.PostingRef == "" {
				log.Error().
					Int("row", row).
					Str("description", txn.Description).
					Msg("Transaction marked Posted without a posting reference; data inconsistency")
				report.Errors = append(report.Errors, PostingError{
					Row:         row,
					Transaction: truncateDescription(txn.Description),
					Message:     "inconsistent state: marked as Posted but no ledger posting found",
				})
			}
			continue
		}

		if txn.PostingRef != "" {
			log.Warn().
				Int("row", row).
				Str("posting_ref", txn.PostingRef).
				Str("status", string(txn.Status)).
				Msg("Posting reference exists but row is not marked Posted; skipping to prevent duplicate")
			continue
		}

		if txn.Status == domain.TransactionStatusError {
			continue
		}

		if txn.Status != domain.TransactionStatusPending && txn.Status != domain.TransactionStatusValidated {
			report.Errors = append(report.Errors, PostingError{
				Row:         row,
				Transaction: truncateDescription(txn.Description),
				Message:     "transaction status must be Validated or Pending (current: " + string(txn.Status) + ")",
			})
			continue
		}

		report.Attempted++

		ref, err := poster.CreatePosting(ctx, domain.Posting{
			Date:          txn.Date,
			Description:   txn.Description,
			Currency:      txn.Currency,
			Company:       imp.Company,
			AccountDebit:  txn.AccountDebit,
			DebitAmount:   txn.DebitAmount,
			AccountCredit: txn.AccountCredit,
			CreditAmount:  txn.CreditAmount,
			SourceImport:  imp.ID,
		})
		if err != nil {
			txn.Status = domain.TransactionStatusError
			txn.ErrorMessage = err.Error()
			report.Errors = append(report.Errors, PostingError{
				Row:         row,
				Transaction: truncateDescription(txn.Description),
				Message:     err.Error(),
			})
			log.Error().Err(err).
				Int("row", row).
				Str("description", txn.Description).
				Msg("Failed to create ledger posting")
			continue
		}

		txn.PostingRef = ref
		txn.Status = domain.TransactionStatusPosted
		txn.ErrorMessage = ""
		report.Created++
		report.PostingRefs = append(report.PostingRefs, ref)
	}

	return report
}

func truncateDescription(s string) string {
	if s == "" {
		return "Unnamed"
	}
	if len(s) > 50 {
		return s[:50]
	}
	return s
}
