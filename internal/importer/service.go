package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/domain"
	"github.com/norelinorth/statement-importer/internal/extract"
)

// Service wires the statement-to-ledger pipeline: extraction preview, AI
// parsing, and posting creation over one import identifier. Handlers may run
// concurrently across processes; the only cross-request shared mutable state
// is the import status, guarded by the store's conditional transition.
type Service struct {
	cfg       Config
	store     ImportStore
	providers ProviderStore
	accounts  AccountLookup
	ledger    LedgerPoster
	blobs     BlobFetcher
	extractor extract.Extractor
	ai        Completer
	authz     Authorizer
	log       zerolog.Logger
}

// NewService assembles the pipeline from its collaborators.
func NewService(cfg Config, store ImportStore, providers ProviderStore, accounts AccountLookup, ledger LedgerPoster, blobs BlobFetcher, extractor extract.Extractor, ai Completer, authz Authorizer, log zerolog.Logger) *Service {
	if authz == nil {
		authz = AllowAll{}
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		providers: providers,
		accounts:  accounts,
		ledger:    ledger,
		blobs:     blobs,
		extractor: extractor,
		ai:        ai,
		authz:     authz,
		log:       log,
	}
}

// PreviewResult is the outcome of the extract-preview operation.
type PreviewResult struct {
	Success       bool         `json:"success"`
	TextPreview   string       `json:"text_preview"`
	TablesFound   int          `json:"tables_found"`
	TablesPreview [][][]string `json:"tables_preview"`
	PageCount     int          `json:"page_count"`
}

// ParseResult is the outcome of the parse-with-AI operation.
type ParseResult struct {
	Success            bool     `json:"success"`
	TransactionsParsed int      `json:"transactions_parsed"`
	Recovered          bool     `json:"recovered"`
	RecoveryNotice     string   `json:"recovery_notice,omitempty"`
	LowConfidence      int      `json:"low_confidence"`
	Diagnostics        []string `json:"diagnostics,omitempty"`
}

// CreateImport registers a new import in Draft status and returns it.
func (s *Service) CreateImport(ctx context.Context, caller Caller, imp domain.StatementImport) (*domain.StatementImport, error) {
	if imp.Company == "" {
		return nil, fmt.Errorf("company is required")
	}
	imp.ID = uuid.NewString()
	imp.Status = domain.ImportStatusDraft
	if imp.ImportDate.IsZero() {
		imp.ImportDate = time.Now().UTC()
	}
	imp.CreatedAt = time.Now().UTC()
	imp.UpdatedAt = imp.CreatedAt

	if err := s.authz.AuthorizeWrite(ctx, caller, imp.ID); err != nil {
		return nil, err
	}
	if err := s.store.SaveImport(ctx, &imp); err != nil {
		return nil, fmt.Errorf("save import: %w", err)
	}
	return &imp, nil
}

// GetImport returns the current state of one import.
func (s *Service) GetImport(ctx context.Context, caller Caller, importID string) (*domain.StatementImport, error) {
	return s.store.GetImport(ctx, importID)
}

// ExtractPreview fetches the statement document, extracts text and tables,
// and persists a preview onto the import.
func (s *Service) ExtractPreview(ctx context.Context, caller Caller, importID string) (*PreviewResult, error) {
	if err := s.authz.AuthorizeWrite(ctx, caller, importID); err != nil {
		return nil, err
	}

	imp, err := s.store.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	if imp.StatementFile == "" {
		return nil, fmt.Errorf("no statement file attached to import %s", importID)
	}

	doc, err := s.extractDocument(ctx, imp)
	if err != nil {
		return nil, err
	}

	imp.PreviewText = truncate(doc.Text, s.cfg.PreviewTextLimit)
	imp.PreviewTables = len(doc.Tables)
	imp.PageCount = doc.PageCount
	imp.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("save preview: %w", err)
	}

	tablesPreview := doc.Tables
	if len(tablesPreview) > s.cfg.PreviewMaxTables {
		tablesPreview = tablesPreview[:s.cfg.PreviewMaxTables]
	}

	return &PreviewResult{
		Success:       true,
		TextPreview:   imp.PreviewText,
		TablesFound:   len(doc.Tables),
		TablesPreview: tablesPreview,
		PageCount:     doc.PageCount,
	}, nil
}

// ParseWithAI acquires the import for processing, runs the
// extract-prompt-complete-parse-normalize-validate cycle, and leaves the
// import Completed with Pending transaction rows, or Failed with the raw
// diagnostic in its error log. Exactly one of two concurrent calls on the
// same import wins the acquisition.
func (s *Service) ParseWithAI(ctx context.Context, caller Caller, importID string) (*ParseResult, error) {
	if err := s.authz.AuthorizeWrite(ctx, caller, importID); err != nil {
		return nil, err
	}

	imp, err := s.store.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}

	// Preconditions checked before taking the lock: no point acquiring an
	// import that cannot be parsed.
	if s.ai == nil {
		return nil, fmt.Errorf("AI assistant is not configured")
	}
	if imp.Provider == "" {
		return nil, fmt.Errorf("statement provider is required to parse transactions")
	}
	if imp.PreviewText == "" {
		return nil, fmt.Errorf("extract the statement before parsing transactions")
	}

	won, observed, err := s.store.TryTransition(ctx, importID, domain.AcquirableStatuses(), domain.ImportStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("acquire for processing: %w", err)
	}
	if !won {
		s.log.Warn().
			Str("import_id", importID).
			Str("observed_status", string(observed)).
			Msg("Lost the processing acquisition race")
		if observed == domain.ImportStatusProcessing {
			return nil, domain.ErrAlreadyProcessing
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnexpectedStatus, observed)
	}

	// Reload now that we own the Processing status.
	imp, err = s.store.GetImport(ctx, importID)
	if err != nil {
		s.failImport(ctx, importID, err)
		return nil, err
	}

	result, rows, err := s.runParseCycle(ctx, imp)
	if err != nil {
		s.failImport(ctx, importID, err)
		return nil, err
	}

	imp.Transactions = rows
	imp.Status = domain.ImportStatusCompleted
	imp.ErrorLog = ""
	imp.RefreshCounters()
	imp.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveImport(ctx, imp); err != nil {
		s.failImport(ctx, importID, err)
		return nil, fmt.Errorf("save parsed transactions: %w", err)
	}

	s.log.Info().
		Str("import_id", importID).
		Int("transactions_parsed", result.TransactionsParsed).
		Bool("recovered", result.Recovered).
		Int("low_confidence", result.LowConfidence).
		Msg("Statement parsed")

	return result, nil
}

// runParseCycle executes the pipeline stages that happen under the
// Processing status. It never mutates the import; the caller owns
// persistence and the terminal transition.
func (s *Service) runParseCycle(ctx context.Context, imp *domain.StatementImport) (*ParseResult, []domain.PostedTransaction, error) {
	provider, err := s.providers.GetProvider(ctx, imp.Provider)
	if err != nil {
		return nil, nil, fmt.Errorf("load provider %q: %w", imp.Provider, err)
	}
	if !provider.Enabled {
		return nil, nil, fmt.Errorf("statement provider %q is disabled", provider.Name)
	}
	if provider.PromptTemplate == "" {
		return nil, nil, fmt.Errorf("statement provider %q has no prompt template configured", provider.Name)
	}
	if warnings, err := provider.Validate(); err != nil {
		return nil, nil, fmt.Errorf("provider %q: %w", provider.Name, err)
	} else {
		for _, w := range warnings {
			s.log.Warn().Str("provider", provider.Name).Msg(w)
		}
	}

	if imp.Company == "" {
		return nil, nil, fmt.Errorf("company is required for AI parsing")
	}
	company, err := s.providers.GetCompany(ctx, imp.Company)
	if err != nil {
		return nil, nil, fmt.Errorf("load company %q: %w", imp.Company, err)
	}

	// Re-extract for parsing; the persisted preview is display material, not
	// the full structured text.
	doc, err := s.extractDocument(ctx, imp)
	if err != nil {
		return nil, nil, err
	}

	prompt := BuildPrompt(PromptData{
		Company:         imp.Company,
		CompanyAbbr:     company.Abbr,
		StatementPeriod: imp.StatementPeriod,
		ImportDate:      imp.ImportDate,
		Provider:        provider,
		Text:            doc.Text,
		Tables:          doc.Tables,
	}, s.cfg)

	raw, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("AI completion: %w", err)
	}

	validated, err := ValidateAIResponse(raw, s.cfg.MaxResponseBytes)
	if err != nil {
		return nil, nil, err
	}

	parsed, err := ParseResponse(validated, s.cfg)
	if err != nil {
		return nil, nil, err
	}

	candidates := DecodeCandidates(parsed.Records)

	whitelist := AllowedAccountNames(provider, company.Abbr)
	normalizer := NewNormalizer(whitelist, s.cfg, s.log)
	corrected, lowConfidence := normalizer.CorrectCandidates(candidates)

	rows, diagnostics, err := ValidateCandidates(ctx, corrected, imp.Company, s.accounts, s.cfg)
	if err != nil {
		return nil, nil, err
	}

	return &ParseResult{
		Success:            true,
		TransactionsParsed: len(rows),
		Recovered:          parsed.Recovered,
		RecoveryNotice:     parsed.Notice,
		LowConfidence:      lowConfidence,
		Diagnostics:        diagnostics,
	}, rows, nil
}

// CreatePostings walks the import's transaction rows and creates one
// balanced ledger posting per eligible row, then persists the updated row
// set in one unit. Per-row failures never abort the batch.
func (s *Service) CreatePostings(ctx context.Context, caller Caller, importID string) (*PostingReport, error) {
	if err := s.authz.AuthorizeWrite(ctx, caller, importID); err != nil {
		return nil, err
	}

	imp, err := s.store.GetImport(ctx, importID)
	if err != nil {
		return nil, err
	}
	if len(imp.Transactions) == 0 {
		return nil, fmt.Errorf("no transactions found to post")
	}
	if imp.Company == "" {
		return nil, fmt.Errorf("company is required to create postings")
	}

	report := PostTransactions(ctx, imp, s.ledger, s.log)

	imp.RefreshCounters()
	imp.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("save posting outcome: %w", err)
	}

	s.log.Info().
		Str("import_id", importID).
		Int("created", report.Created).
		Int("attempted", report.Attempted).
		Int("errors", len(report.Errors)).
		Msg("Posting run finished")

	return report, nil
}

// extractDocument fetches the statement file and runs extraction, enforcing
// the document size ceiling.
func (s *Service) extractDocument(ctx context.Context, imp *domain.StatementImport) (*extract.Document, error) {
	data, err := s.blobs.Fetch(ctx, imp.StatementFile)
	if err != nil {
		return nil, fmt.Errorf("fetch statement file: %w", err)
	}
	if s.cfg.MaxDocumentBytes > 0 && int64(len(data)) > s.cfg.MaxDocumentBytes {
		return nil, fmt.Errorf("statement file is too large (%d bytes, maximum %d)", len(data), s.cfg.MaxDocumentBytes)
	}

	doc, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract document: %w", err)
	}
	return doc, nil
}

// failImport records a pipeline-level failure: Failed status plus the raw
// diagnostic in the import's error log. A secondary failure while persisting
// the transition is logged as a distinct, higher-severity event rather than
// re-thrown, since the original failure must not be lost; the import then
// stays in Processing until an external reconciliation sweep picks it up.
func (s *Service) failImport(ctx context.Context, importID string, cause error) {
	imp, err := s.store.GetImport(ctx, importID)
	if err != nil {
		s.log.Error().Err(err).
			Str("import_id", importID).
			AnErr("original_error", cause).
			Msg("Could not load import to record failure; import left in Processing")
		return
	}

	imp.Status = domain.ImportStatusFailed
	imp.ErrorLog = "AI Parsing Error: " + cause.Error()
	imp.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveImport(ctx, imp); err != nil {
		s.log.Error().Err(err).
			Str("import_id", importID).
			AnErr("original_error", cause).
			Msg("Failed to persist Failed status; import left in Processing until reconciled")
		return
	}

	s.log.Error().Err(cause).Str("import_id", importID).Msg("Statement parsing failed")
}

func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
