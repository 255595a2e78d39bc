package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/norelinorth/statement-importer/internal/domain"
)

func testProvider() *domain.Provider {
	return &domain.Provider{
		Name:    "Interactive Brokers",
		Enabled: true,
		PromptTemplate: "Parse the {provider} statement for {company} covering {statement_period}.\n" +
			"Imported {import_date}.\n\nTEXT:\n{text}\n\nTABLES:\n{tables}\n",
		AccountingRules: []domain.AccountingRule{
			{
				TransactionType:       "Dividend",
				DebitAccountTemplate:  "Cash - {provider} Account",
				CreditAccountTemplate: "Dividend Income",
				DescriptionTemplate:   "Dividend payment",
				Enabled:               true,
			},
			{
				TransactionType:       "Fee",
				DebitAccountTemplate:  "Brokerage Fees",
				CreditAccountTemplate: "Cash - {provider} Account",
				Enabled:               true,
			},
			{
				TransactionType:      "Disabled rule",
				DebitAccountTemplate: "Should Not Appear",
				Enabled:              false,
			},
		},
	}
}

func TestAllowedAccountNames(t *testing.T) {
	names := AllowedAccountNames(testProvider(), "NN")

	want := []string{
		"Brokerage Fees - NN",
		"Cash - Interactive Brokers Account - NN",
		"Dividend Income - NN",
	}
	if len(names) != len(want) {
		t.Fatalf("got %d names %v, want %d", len(names), names, len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestAllowedAccountNames_NoAbbr(t *testing.T) {
	if names := AllowedAccountNames(testProvider(), ""); names != nil {
		t.Errorf("missing company abbreviation must yield no whitelist, got %v", names)
	}
}

func TestBuildPrompt_Placeholders(t *testing.T) {
	data := PromptData{
		Company:         "Noreli North",
		CompanyAbbr:     "NN",
		StatementPeriod: "Q1 2026",
		ImportDate:      time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Provider:        testProvider(),
		Text:            "statement text here",
		Tables:          [][][]string{{{"Date", "Amount"}, {"2026-01-05", "100.00"}}},
	}

	prompt := BuildPrompt(data, DefaultConfig())

	for _, want := range []string{
		"Noreli North",
		"Q1 2026",
		"2026-04-02",
		"statement text here",
		"Date | Amount",
		"ALLOWED ACCOUNTS",
		"'Cash - Interactive Brokers Account - NN'",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Should Not Appear") {
		t.Error("disabled rule leaked into the prompt")
	}
	if strings.Contains(prompt, "{company}") || strings.Contains(prompt, "{text}") {
		t.Error("recognized placeholders left unrendered")
	}
}

func TestBuildPrompt_UnknownPlaceholderVerbatim(t *testing.T) {
	p := testProvider()
	p.PromptTemplate = "Header {custom_marker} {text}"

	prompt := BuildPrompt(PromptData{Provider: p, CompanyAbbr: "NN", ImportDate: time.Now()}, DefaultConfig())
	if !strings.Contains(prompt, "{custom_marker}") {
		t.Error("unresolved placeholders must stay verbatim, not be blanked")
	}
}

func TestBuildPrompt_ExamplesAppendedWhenTokenAbsent(t *testing.T) {
	p := testProvider()

	prompt := BuildPrompt(PromptData{Provider: p, Company: "Noreli North", CompanyAbbr: "NN", ImportDate: time.Now()}, DefaultConfig())
	if !strings.Contains(prompt, "ALLOWED ACCOUNTS") {
		t.Error("examples block must be appended when {accounting_examples} is absent")
	}

	p.PromptTemplate = "Before\n{accounting_examples}\nAfter"
	prompt = BuildPrompt(PromptData{Provider: p, Company: "Noreli North", CompanyAbbr: "NN", ImportDate: time.Now()}, DefaultConfig())
	if strings.Count(prompt, "ALLOWED ACCOUNTS") != 1 {
		t.Error("examples block must render exactly once when the token is present")
	}
	if !strings.HasSuffix(strings.TrimSpace(prompt), "After") {
		t.Error("examples block must replace the token in place")
	}
}

func TestBuildPrompt_TextIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PromptTextLimit = 10

	data := PromptData{
		Provider:    testProvider(),
		CompanyAbbr: "NN",
		ImportDate:  time.Now(),
		Text:        strings.Repeat("a", 100),
	}
	prompt := BuildPrompt(data, cfg)
	if strings.Contains(prompt, strings.Repeat("a", 11)) {
		t.Error("prompt text exceeded the configured limit")
	}
}

func TestFormatTables(t *testing.T) {
	tables := [][][]string{
		{{"h1", "h2"}, {"a", "b"}, {"c", "d"}},
		{},
		{{"x"}},
	}

	out := FormatTables(tables, 5, 2)
	if !strings.Contains(out, "Table 1:") || !strings.Contains(out, "Table 2:") {
		t.Errorf("table numbering wrong (empty table must be skipped):\n%s", out)
	}
	if !strings.Contains(out, "... (1 more rows)") {
		t.Errorf("row overflow marker missing:\n%s", out)
	}

	if got := FormatTables(nil, 5, 20); got != "No tables found" {
		t.Errorf("empty input: got %q", got)
	}
}
