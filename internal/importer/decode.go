package importer

import (
	"strconv"
	"strings"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// DecodeCandidates maps raw parsed records onto TransactionCandidate values.
// Decoding is deliberately lenient: a missing or mistyped field becomes the
// zero value and is left for the validator to diagnose, so one bad field
// never discards the whole batch at this stage.
func DecodeCandidates(records []map[string]any) []domain.TransactionCandidate {
	candidates := make([]domain.TransactionCandidate, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, domain.TransactionCandidate{
			Date:          stringField(rec, "date"),
			Description:   stringField(rec, "description"),
			Currency:      stringField(rec, "currency"),
			AccountDebit:  stringField(rec, "account_debit"),
			DebitAmount:   numberField(rec, "debit_amount"),
			AccountCredit: stringField(rec, "account_credit"),
			CreditAmount:  numberField(rec, "credit_amount"),
		})
	}
	return candidates
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// numberField accepts JSON numbers and numeric strings; models occasionally
// quote amounts.
func numberField(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case float64:
		f := val
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
