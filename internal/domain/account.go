package domain

import "time"

// Account is one entry in the chart of accounts. Only leaf (non-group)
// accounts hold balances and may appear on posting legs.
type Account struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	IsGroup  bool   `json:"is_group"`
	Disabled bool   `json:"disabled"`
}

// Company identifies the legal entity an import belongs to. Abbr is the
// suffix appended to account names ("Cash - Brokerage Account - NN").
type Company struct {
	Name string `json:"name"`
	Abbr string `json:"abbr"`
}

// Posting is one balanced double-entry ledger posting: equal-magnitude debit
// and credit legs against two distinct leaf accounts.
type Posting struct {
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Currency      string    `json:"currency"`
	Company       string    `json:"company"`
	AccountDebit  string    `json:"account_debit"`
	DebitAmount   float64   `json:"debit_amount"`
	AccountCredit string    `json:"account_credit"`
	CreditAmount  float64   `json:"credit_amount"`
	SourceImport  string    `json:"source_import,omitempty"`
}
