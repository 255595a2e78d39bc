package importer

import (
	"context"

	"github.com/norelinorth/statement-importer/internal/domain"
)

// ImportStore is the persistence contract for statement imports: get-by-id,
// whole-document upsert, and one atomic conditional status transition.
type ImportStore interface {
	GetImport(ctx context.Context, id string) (*domain.StatementImport, error)
	SaveImport(ctx context.Context, imp *domain.StatementImport) error

	// TryTransition sets the import status to `to` only if the current status
	// is one of `from`, as a single indivisible operation at the storage
	// layer. It reports whether this call performed the transition and the
	// status observed when it did not. A read-then-write pair is not an
	// acceptable implementation; the read-modify-write gap is the race this
	// operation exists to close.
	TryTransition(ctx context.Context, id string, from []domain.ImportStatus, to domain.ImportStatus) (bool, domain.ImportStatus, error)
}

// ProviderStore resolves provider configuration and company metadata.
type ProviderStore interface {
	GetProvider(ctx context.Context, name string) (*domain.Provider, error)
	GetCompany(ctx context.Context, name string) (*domain.Company, error)
}

// AccountLookup resolves chart-of-accounts entries by name.
type AccountLookup interface {
	// GetAccount returns domain.ErrAccountNotFound when no account has the
	// given name.
	GetAccount(ctx context.Context, name string) (*domain.Account, error)
}

// LedgerPoster creates one balanced double-entry posting and returns its
// reference. Implementations enforce the account invariants (exists, leaf,
// company, enabled) and the balance tolerance.
type LedgerPoster interface {
	CreatePosting(ctx context.Context, p domain.Posting) (string, error)
}

// Completer is the opaque AI collaborator: prompt string in, response string
// out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BlobFetcher retrieves the statement document bytes by URI.
type BlobFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Caller identifies the authenticated principal invoking an operation.
type Caller struct {
	UserID string
}

// Authorizer is the pluggable policy check applied before any pipeline work.
// It returns domain.ErrPermissionDenied (possibly wrapped) to deny.
type Authorizer interface {
	AuthorizeWrite(ctx context.Context, caller Caller, importID string) error
}

// AllowAll is the default open policy used in development wiring.
type AllowAll struct{}

func (AllowAll) AuthorizeWrite(ctx context.Context, caller Caller, importID string) error {
	return nil
}
