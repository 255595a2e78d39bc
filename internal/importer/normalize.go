package importer

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// KeywordRule maps trigger keywords found in a free-text account label onto
// whitelist entries containing at least one of the required substrings.
// Confidence is the base score; additional distinct trigger matches boost it.
type KeywordRule struct {
	Triggers   []string
	Required   []string
	Confidence float64
}

// DefaultKeywordRules covers the brokerage vocabulary seen across supported
// providers, German terms included since those statements are common.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Triggers: []string{"cash", "barmittel", "ib account"}, Required: []string{"Cash", "Interactive Brokers"}, Confidence: 0.85},
		{Triggers: []string{"dividend", "dividenden"}, Required: []string{"Dividend"}, Confidence: 0.90},
		{Triggers: []string{"commission", "fee", "provision", "gebühr"}, Required: []string{"Brokerage Fees"}, Confidence: 0.85},
		{Triggers: []string{"interest", "zins"}, Required: []string{"Interest"}, Confidence: 0.90},
		{Triggers: []string{"securities", "investment", "wertpapier", "sicherheit"}, Required: []string{"Securities", "Investments"}, Confidence: 0.80},
		{Triggers: []string{"transfer", "deposit", "withdrawal", "einzahlung", "auszahlung"}, Required: []string{"Transfer"}, Confidence: 0.75},
	}
}

// termTranslations substitutes source-language domain vocabulary with the
// canonical English terms used in account names. Ordered longest-first so a
// compound term is never clobbered by one of its prefixes.
var termTranslations = []struct{ from, to string }{
	{"Transaktionsgebühren", "Brokerage Fees"},
	{"Sicherheitenwert", "Investments - Securities"},
	{"Sonstige Gebühren", "Brokerage Fees"},
	{"Quellensteuer", "Brokerage Fees"},
	{"Sicherheiten", "Investments - Securities"},
	{"Wertpapiere", "Investments - Securities"},
	{"Zinsertrag", "Interest Income"},
	{"Dividenden", "Dividend Income"},
	{"Provisionen", "Brokerage Fees"},
	{"Kommission", "Brokerage Fees"},
	{"Einzahlung", "Bank - Transfer"},
	{"Auszahlung", "Bank - Transfer"},
	{"Barmittel", "Cash"},
	{"Zinsen", "Interest Income"},
}

// Normalizer reconciles free-text account labels against a provider-defined
// whitelist with confidence scoring.
type Normalizer struct {
	whitelist map[string]struct{}
	ordered   []string
	rules     []KeywordRule
	cfg       Config
	log       zerolog.Logger
}

// NewNormalizer builds a normalizer over the allowed account names.
func NewNormalizer(whitelist []string, cfg Config, log zerolog.Logger) *Normalizer {
	set := make(map[string]struct{}, len(whitelist))
	ordered := make([]string, 0, len(whitelist))
	for _, acc := range whitelist {
		if _, dup := set[acc]; dup {
			continue
		}
		set[acc] = struct{}{}
		ordered = append(ordered, acc)
	}
	sort.Strings(ordered)

	return &Normalizer{
		whitelist: set,
		ordered:   ordered,
		rules:     DefaultKeywordRules(),
		cfg:       cfg,
		log:       log,
	}
}

// Match maps one label onto the whitelist. Matching order, short-circuiting
// on first success: exact membership (1.0), exact membership after term
// translation (0.95), then keyword rules. The best keyword match is accepted
// only at or above the configured minimum confidence; otherwise ("", 0).
func (n *Normalizer) Match(label string) (string, float64) {
	if label == "" {
		return "", 0
	}

	if _, ok := n.whitelist[label]; ok {
		return label, 1.0
	}

	translated := label
	for _, tr := range termTranslations {
		translated = strings.ReplaceAll(translated, tr.from, tr.to)
	}
	if _, ok := n.whitelist[translated]; ok {
		return translated, 0.95
	}

	labelLower := strings.ToLower(label)
	bestMatch := ""
	bestConfidence := 0.0

	for _, rule := range n.rules {
		matches := 0
		for _, trigger := range rule.Triggers {
			if strings.Contains(labelLower, trigger) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		confidence := rule.Confidence + float64(matches-1)*n.cfg.KeywordBoost
		if confidence > n.cfg.MaxRuleConfidence {
			confidence = n.cfg.MaxRuleConfidence
		}

		for _, acc := range n.ordered {
			if !containsAny(acc, rule.Required) {
				continue
			}
			if confidence > bestConfidence {
				bestMatch = acc
				bestConfidence = confidence
			}
		}
	}

	if bestMatch != "" && bestConfidence >= n.cfg.MinConfidence {
		return bestMatch, bestConfidence
	}
	return "", 0
}

// CorrectCandidates rewrites debit/credit labels onto the whitelist. A row is
// kept only when both sides resolve; partial resolution is total failure for
// that row, logged with full detail for operator review. Kept rows with
// either side below the review confidence are counted for the batch summary.
func (n *Normalizer) CorrectCandidates(candidates []domain.TransactionCandidate) ([]domain.TransactionCandidate, int) {
	if len(n.whitelist) == 0 {
		return candidates, 0
	}

	corrected := make([]domain.TransactionCandidate, 0, len(candidates))
	lowConfidence := 0

	for _, cand := range candidates {
		debitMatch, debitConf := n.Match(cand.AccountDebit)
		creditMatch, creditConf := n.Match(cand.AccountCredit)

		if debitMatch == "" || creditMatch == "" {
			n.log.Error().
				Str("debit_label", cand.AccountDebit).
				Str("debit_match", debitMatch).
				Float64("debit_confidence", debitConf).
				Str("credit_label", cand.AccountCredit).
				Str("credit_match", creditMatch).
				Float64("credit_confidence", creditConf).
				Str("description", cand.Description).
				Strs("allowed_accounts", n.ordered).
				Msg("Could not auto-correct account names; dropping transaction")
			continue
		}

		cand.AccountDebit = debitMatch
		cand.AccountCredit = creditMatch

		if debitConf < n.cfg.ReviewConfidence || creditConf < n.cfg.ReviewConfidence {
			lowConfidence++
			n.log.Warn().
				Str("debit_match", debitMatch).
				Float64("debit_confidence", debitConf).
				Str("credit_match", creditMatch).
				Float64("credit_confidence", creditConf).
				Str("description", cand.Description).
				Msg("Low confidence account auto-correction; flagged for review")
		}

		corrected = append(corrected, cand)
	}

	return corrected, lowConfidence
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
