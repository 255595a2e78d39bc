package importer

// Config carries every tunable the pipeline depends on, passed explicitly at
// construction so the pipeline stays pure with respect to its inputs.
type Config struct {
	// MaxDocumentBytes caps the statement file size accepted for extraction.
	MaxDocumentBytes int64

	// MaxResponseBytes caps the AI response size accepted for parsing.
	MaxResponseBytes int

	// PromptTextLimit is how much extracted text the prompt includes.
	PromptTextLimit int
	// PromptMaxTables / PromptMaxRows bound the tables block in the prompt.
	PromptMaxTables int
	PromptMaxRows   int

	// PreviewTextLimit / PreviewMaxTables bound the extract-preview result.
	PreviewTextLimit int
	PreviewMaxTables int

	// MinConfidence is the acceptance floor for account-name matches.
	MinConfidence float64
	// ReviewConfidence flags accepted matches below it for operator review.
	ReviewConfidence float64
	// KeywordBoost is added per additional distinct trigger keyword matched.
	KeywordBoost float64
	// MaxRuleConfidence caps boosted keyword-rule confidence.
	MaxRuleConfidence float64

	// BalanceTolerance is the absolute tolerance for |debit - credit|.
	BalanceTolerance float64

	// SnippetLimit bounds response snippets embedded in diagnostics.
	SnippetLimit int
}

// DefaultConfig returns production defaults. The confidence constants are
// heuristic, tuned on operator feedback rather than derived from an accuracy
// target.
func DefaultConfig() Config {
	return Config{
		MaxDocumentBytes:  50 << 20,
		MaxResponseBytes:  500_000,
		PromptTextLimit:   3000,
		PromptMaxTables:   5,
		PromptMaxRows:     20,
		PreviewTextLimit:  1000,
		PreviewMaxTables:  3,
		MinConfidence:     0.70,
		ReviewConfidence:  0.80,
		KeywordBoost:      0.05,
		MaxRuleConfidence: 0.95,
		BalanceTolerance:  0.01,
		SnippetLimit:      500,
	}
}
