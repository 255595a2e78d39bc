package importer

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/domain"
)

var testWhitelist = []string{
	"Cash - Interactive Brokers Account - NN",
	"Dividend Income - NN",
	"Brokerage Fees - NN",
	"Interest Income - NN",
	"Investments - Securities - NN",
	"Bank - Transfer - NN",
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(testWhitelist, DefaultConfig(), zerolog.Nop())
}

func TestNormalizer_ExactMatchPrecedence(t *testing.T) {
	n := newTestNormalizer()

	// "Cash" is a keyword trigger too; exact membership must still win with
	// confidence exactly 1.0.
	match, conf := n.Match("Cash - Interactive Brokers Account - NN")
	if match != "Cash - Interactive Brokers Account - NN" {
		t.Errorf("match = %q", match)
	}
	if conf != 1.0 {
		t.Errorf("confidence = %v, want exactly 1.0", conf)
	}
}

func TestNormalizer_TranslatedExactMatch(t *testing.T) {
	n := newTestNormalizer()

	match, conf := n.Match("Dividenden - NN")
	if match != "Dividend Income - NN" {
		t.Errorf("match = %q, want Dividend Income - NN", match)
	}
	if conf != 0.95 {
		t.Errorf("confidence = %v, want 0.95", conf)
	}
}

func TestNormalizer_KeywordRules(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		label     string
		wantMatch string
		wantConf  float64
	}{
		{"dividend payment AAPL", "Dividend Income - NN", 0.90},
		{"Zinsgutschrift", "Interest Income - NN", 0.90},
		{"trading commission", "Brokerage Fees - NN", 0.85},
		// Two distinct triggers ("commission" and "fee") boost by one step.
		{"commission fee", "Brokerage Fees - NN", 0.90},
		{"completely unrelated label", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			match, conf := n.Match(tt.label)
			if match != tt.wantMatch {
				t.Errorf("match = %q, want %q", match, tt.wantMatch)
			}
			if diff := conf - tt.wantConf; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %v, want %v", conf, tt.wantConf)
			}
		})
	}
}

func TestNormalizer_BoostIsCapped(t *testing.T) {
	cfg := DefaultConfig()
	n := NewNormalizer(testWhitelist, cfg, zerolog.Nop())
	n.rules = []KeywordRule{{
		Triggers:   []string{"interest", "zins", "income", "credit"},
		Required:   []string{"Interest"},
		Confidence: 0.90,
	}}

	_, conf := n.Match("interest zins income credit")
	if conf != cfg.MaxRuleConfidence {
		t.Errorf("confidence = %v, want cap %v", conf, cfg.MaxRuleConfidence)
	}
}

func TestNormalizer_ThresholdRejection(t *testing.T) {
	n := newTestNormalizer()
	n.rules = []KeywordRule{{
		Triggers:   []string{"misc"},
		Required:   []string{"Brokerage Fees"},
		Confidence: 0.65,
	}}

	match, conf := n.Match("misc adjustment")
	if match != "" || conf != 0 {
		t.Errorf("got (%q, %v), want (\"\", 0) below the 0.70 floor", match, conf)
	}
}

func TestNormalizer_CorrectCandidates(t *testing.T) {
	n := newTestNormalizer()
	amount := func(v float64) *float64 { return &v }

	candidates := []domain.TransactionCandidate{
		{
			// Both sides resolve with high confidence.
			Description:   "dividend AAPL",
			AccountDebit:  "Cash - Interactive Brokers Account - NN",
			AccountCredit: "Dividenden - NN",
			DebitAmount:   amount(10), CreditAmount: amount(10),
		},
		{
			// Credit side resolves via the 0.75 transfer rule: kept, flagged.
			Description:   "wire in",
			AccountDebit:  "Cash - Interactive Brokers Account - NN",
			AccountCredit: "incoming deposit",
			DebitAmount:   amount(500), CreditAmount: amount(500),
		},
		{
			// Debit side cannot resolve: the whole row is dropped even though
			// the credit side would match.
			Description:   "mystery",
			AccountDebit:  "Unknown Thing",
			AccountCredit: "Dividend Income - NN",
			DebitAmount:   amount(5), CreditAmount: amount(5),
		},
	}

	corrected, lowConfidence := n.CorrectCandidates(candidates)
	if len(corrected) != 2 {
		t.Fatalf("got %d corrected rows, want 2", len(corrected))
	}
	if corrected[0].AccountCredit != "Dividend Income - NN" {
		t.Errorf("credit label not corrected: %q", corrected[0].AccountCredit)
	}
	if corrected[1].AccountCredit != "Bank - Transfer - NN" {
		t.Errorf("transfer label not corrected: %q", corrected[1].AccountCredit)
	}
	if lowConfidence != 1 {
		t.Errorf("lowConfidence = %d, want 1", lowConfidence)
	}
}

func TestNormalizer_EmptyWhitelistSkipsCorrection(t *testing.T) {
	n := NewNormalizer(nil, DefaultConfig(), zerolog.Nop())
	candidates := []domain.TransactionCandidate{{AccountDebit: "anything"}}

	corrected, lowConfidence := n.CorrectCandidates(candidates)
	if len(corrected) != 1 || lowConfidence != 0 {
		t.Errorf("no rules configured: correction must be a pass-through")
	}
}
