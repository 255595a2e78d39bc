package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/api/middleware"
	"github.com/norelinorth/statement-importer/internal/domain"
	"github.com/norelinorth/statement-importer/internal/importer"
)

// ImportsHandler handles statement-import endpoints.
type ImportsHandler struct {
	svc *importer.Service
	log zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(svc *importer.Service, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{svc: svc, log: log}
}

// callerFrom identifies the requesting principal. Deployments terminate
// authentication at the edge; the proxy forwards the user identity.
func callerFrom(r *http.Request) importer.Caller {
	return importer.Caller{UserID: r.Header.Get("X-User-ID")}
}

// CreateImport handles POST /api/imports
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Company         string `json:"company"`
		Provider        string `json:"provider"`
		StatementFile   string `json:"statement_file"`
		StatementPeriod string `json:"statement_period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Company == "" || req.StatementFile == "" {
		middleware.WriteError(w, http.StatusBadRequest, "company and statement_file are required")
		return
	}

	imp, err := h.svc.CreateImport(r.Context(), callerFrom(r), domain.StatementImport{
		Company:         req.Company,
		Provider:        req.Provider,
		StatementFile:   req.StatementFile,
		StatementPeriod: req.StatementPeriod,
	})
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create import")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, imp)
}

// GetImport handles GET /api/imports/{id}
func (h *ImportsHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	importID := mux.Vars(r)["id"]

	imp, err := h.svc.GetImport(r.Context(), callerFrom(r), importID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to load import")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, imp)
}

// ExtractPreview handles POST /api/imports/{id}/extract
func (h *ImportsHandler) ExtractPreview(w http.ResponseWriter, r *http.Request) {
	importID := mux.Vars(r)["id"]

	result, err := h.svc.ExtractPreview(r.Context(), callerFrom(r), importID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to extract statement")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// ParseWithAI handles POST /api/imports/{id}/parse
func (h *ImportsHandler) ParseWithAI(w http.ResponseWriter, r *http.Request) {
	importID := mux.Vars(r)["id"]

	result, err := h.svc.ParseWithAI(r.Context(), callerFrom(r), importID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to parse statement")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// CreatePostings handles POST /api/imports/{id}/post
func (h *ImportsHandler) CreatePostings(w http.ResponseWriter, r *http.Request) {
	importID := mux.Vars(r)["id"]

	report, err := h.svc.CreatePostings(r.Context(), callerFrom(r), importID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create postings")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps domain failures onto HTTP statuses. Unclassified
// errors become a 500 carrying a reference ID that also appears in the log,
// so operators can correlate without leaking internals to clients.
func (h *ImportsHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrImportNotFound),
		errors.Is(err, domain.ErrProviderNotFound),
		errors.Is(err, domain.ErrCompanyNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		middleware.WriteError(w, http.StatusForbidden, "You are not permitted to modify this import")
	case errors.Is(err, domain.ErrAlreadyProcessing):
		middleware.WriteError(w, http.StatusConflict, "Import is already being processed")
	case errors.Is(err, domain.ErrUnexpectedStatus):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEmptyResponse),
		errors.Is(err, domain.ErrMalformedResponse),
		errors.Is(err, domain.ErrInvalidAIResponse),
		errors.Is(err, domain.ErrNoValidTransactions),
		errors.Is(err, domain.ErrEmptyDocument):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		refID := uuid.NewString()
		h.log.Error().Err(err).
			Str("reference_id", refID).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg(fallback)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        fallback,
			"reference_id": refID,
		})
	}
}
