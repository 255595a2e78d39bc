package domain

import "errors"

// Typed error kinds. Pipeline code wraps these with fmt.Errorf("...: %w", ...)
// so callers can classify with errors.Is while keeping the raw diagnostic for
// the internal error log. Handlers translate them to templated user-facing
// messages; the raw text never reaches a response body.
var (
	// ErrEmptyResponse indicates the AI returned an empty string.
	ErrEmptyResponse = errors.New("empty AI response")

	// ErrMalformedResponse indicates no usable transaction array could be
	// extracted from the AI response, even after truncation salvage.
	ErrMalformedResponse = errors.New("malformed AI response")

	// ErrInvalidAIResponse indicates the response failed shape validation
	// (encoding, HTML error page, refusal, size ceiling) before parsing.
	ErrInvalidAIResponse = errors.New("invalid AI response")

	// ErrAlreadyProcessing indicates another request holds the Processing
	// status for this import.
	ErrAlreadyProcessing = errors.New("import is already being processed")

	// ErrUnexpectedStatus indicates the acquire transition was lost to a
	// status other than Processing.
	ErrUnexpectedStatus = errors.New("unexpected import status")

	// ErrNoValidTransactions indicates every parsed row failed validation.
	ErrNoValidTransactions = errors.New("no valid transactions in AI response")

	ErrAccountNotFound        = errors.New("account does not exist in the chart of accounts")
	ErrAccountIsGroup         = errors.New("account is a group account")
	ErrAccountCompanyMismatch = errors.New("account belongs to a different company")
	ErrAccountDisabled        = errors.New("account is disabled")
	ErrUnbalancedTransaction  = errors.New("debit and credit amounts are not balanced")

	// ErrDataConsistency indicates a row marked Posted without a posting
	// reference.
	ErrDataConsistency = errors.New("data consistency error")

	// ErrEmptyDocument indicates the statement document has zero pages.
	ErrEmptyDocument = errors.New("document appears to be empty")

	ErrImportNotFound   = errors.New("statement import not found")
	ErrProviderNotFound = errors.New("statement provider not found")
	ErrCompanyNotFound  = errors.New("company not found")
	ErrPermissionDenied = errors.New("permission denied")
)
