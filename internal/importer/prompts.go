package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// PromptData carries everything needed to render a provider's prompt
// template.
type PromptData struct {
	Company         string
	CompanyAbbr     string
	StatementPeriod string
	ImportDate      time.Time
	Provider        *domain.Provider
	Text            string
	Tables          [][][]string
}

// AllowedAccountNames expands the provider's enabled accounting rules into
// the full whitelist of account names, {provider} token resolved and company
// abbreviation suffixed.
func AllowedAccountNames(p *domain.Provider, companyAbbr string) []string {
	if companyAbbr == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	add := func(template string) {
		name := strings.ReplaceAll(template, "{provider}", p.Name) + " - " + companyAbbr
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, rule := range p.AccountingRules {
		if !rule.Enabled {
			continue
		}
		add(rule.DebitAccountTemplate)
		add(rule.CreditAccountTemplate)
	}

	sort.Strings(names)
	return names
}

// maxPromptExamples bounds the examples block; the whitelist still covers
// every rule.
const maxPromptExamples = 4

// AccountingExamples renders the examples block injected into the prompt:
// the allowed-accounts whitelist, a few example rows, and the rules the
// model must follow when naming accounts.
func AccountingExamples(p *domain.Provider, companyAbbr string, today time.Time) string {
	allowed := AllowedAccountNames(p, companyAbbr)
	if len(allowed) == 0 {
		return "Use standard accounting account names (e.g., 'Cash - Bank Account', 'Investments - Securities', 'Interest Income')."
	}

	type exampleRow struct {
		Date          string  `json:"date"`
		Description   string  `json:"description"`
		Currency      string  `json:"currency"`
		AccountDebit  string  `json:"account_debit"`
		DebitAmount   float64 `json:"debit_amount"`
		AccountCredit string  `json:"account_credit"`
		CreditAmount  float64 `json:"credit_amount"`
	}

	var examples []exampleRow
	for _, rule := range p.AccountingRules {
		if !rule.Enabled || len(examples) >= maxPromptExamples {
			continue
		}
		description := rule.DescriptionTemplate
		if description == "" {
			description = "Example " + rule.TransactionType
		}
		examples = append(examples, exampleRow{
			Date:          today.Format("2006-01-02"),
			Description:   description,
			Currency:      "USD",
			AccountDebit:  strings.ReplaceAll(rule.DebitAccountTemplate, "{provider}", p.Name) + " - " + companyAbbr,
			DebitAmount:   100.00,
			AccountCredit: strings.ReplaceAll(rule.CreditAccountTemplate, "{provider}", p.Name) + " - " + companyAbbr,
			CreditAmount:  100.00,
		})
	}

	examplesJSON, _ := json.Marshal(examples)

	quoted := make([]string, len(allowed))
	for i, acc := range allowed {
		quoted[i] = "'" + acc + "'"
	}

	return fmt.Sprintf(`ALLOWED ACCOUNTS (use EXACT names):
%s

TRANSACTION EXAMPLES:
%s

CRITICAL RULES:
1. Copy account names EXACTLY from the allowed list (character-by-character)
2. DO NOT translate account names (always use English, even if the statement is German or another language)
3. DO NOT shorten or simplify names
4. Every account MUST include the " - %s" suffix
5. Only use accounts from the allowed list above - never invent new ones`,
		strings.Join(quoted, ", "), examplesJSON, companyAbbr)
}

const examplesPlaceholder = "{accounting_examples}"

// BuildPrompt renders the provider's prompt template. Recognized
// placeholders: {company}, {statement_period}, {import_date}, {text},
// {tables}, {provider}, {accounting_examples}. Unresolved placeholders are
// left verbatim rather than silently blanked; when the template carries no
// {accounting_examples} token the generated block is appended so it is never
// dropped.
func BuildPrompt(data PromptData, cfg Config) string {
	text := data.Text
	if cfg.PromptTextLimit > 0 && len(text) > cfg.PromptTextLimit {
		text = text[:cfg.PromptTextLimit]
	}

	period := data.StatementPeriod
	if period == "" {
		period = "Not specified"
	}

	examples := AccountingExamples(data.Provider, data.CompanyAbbr, data.ImportDate)

	replacements := []struct{ token, value string }{
		{"{company}", data.Company},
		{"{statement_period}", period},
		{"{import_date}", data.ImportDate.Format("2006-01-02")},
		{"{text}", text},
		{"{tables}", FormatTables(data.Tables, cfg.PromptMaxTables, cfg.PromptMaxRows)},
		{"{provider}", data.Provider.Name},
		{examplesPlaceholder, examples},
	}

	prompt := data.Provider.PromptTemplate
	for _, r := range replacements {
		prompt = strings.ReplaceAll(prompt, r.token, r.value)
	}

	if !strings.Contains(data.Provider.PromptTemplate, examplesPlaceholder) {
		prompt += "\n\n" + examples
	}
	return prompt
}

// FormatTables renders extracted tables as pipe-separated text for prompt
// inclusion, bounded by maxTables and maxRows.
func FormatTables(tables [][][]string, maxTables, maxRows int) string {
	var b strings.Builder
	count := 0
	for _, table := range tables {
		if len(table) == 0 {
			continue
		}
		if count >= maxTables {
			break
		}
		count++

		fmt.Fprintf(&b, "\n\nTable %d:\n", count)
		for r, row := range table {
			if r >= maxRows {
				break
			}
			if len(row) == 0 {
				continue
			}
			b.WriteString(strings.Join(row, " | "))
			b.WriteByte('\n')
		}
		if len(table) > maxRows {
			fmt.Fprintf(&b, "... (%d more rows)\n", len(table)-maxRows)
		}
	}

	if b.Len() == 0 {
		return "No tables found"
	}
	return b.String()
}
