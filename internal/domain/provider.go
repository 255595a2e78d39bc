package domain

import (
	"fmt"
	"strings"
)

// Provider is the configuration owner for one brokerage provider: the prompt
// template used to instruct the model and the accounting rules that define
// which ledger accounts its transactions map onto. Referenced by name, never
// mutated by the pipeline.
type Provider struct {
	Name            string           `json:"name"`
	Enabled         bool             `json:"enabled"`
	PromptTemplate  string           `json:"prompt_template"`
	AccountingRules []AccountingRule `json:"accounting_rules"`
}

// AccountingRule maps a transaction category onto debit/credit account-name
// templates. Templates may contain a {provider} substitution token.
type AccountingRule struct {
	TransactionType       string `json:"transaction_type"`
	DebitAccountTemplate  string `json:"debit_account_template"`
	CreditAccountTemplate string `json:"credit_account_template"`
	DescriptionTemplate   string `json:"description_template,omitempty"`
	Enabled               bool   `json:"enabled"`
}

// Validate normalizes the provider name and checks rule integrity. A missing
// transaction type on any rule is a hard error; an enabled provider without
// enabled rules is returned as a warning only.
func (p *Provider) Validate() ([]string, error) {
	p.Name = strings.TrimSpace(p.Name)

	var warnings []string
	enabledRules := 0
	for i := range p.AccountingRules {
		rule := &p.AccountingRules[i]
		if rule.TransactionType == "" {
			return warnings, fmt.Errorf("accounting rule %d: transaction type is required", i+1)
		}
		if rule.Enabled {
			enabledRules++
		}
	}

	if p.Enabled && enabledRules == 0 {
		warnings = append(warnings, "provider is enabled but has no enabled accounting rules")
	}
	return warnings, nil
}
