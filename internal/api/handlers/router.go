package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/norelinorth/statement-importer/internal/api/middleware"
	"github.com/norelinorth/statement-importer/internal/importer"
)

// NewRouter builds the HTTP routing table with the middleware chain applied.
func NewRouter(svc *importer.Service, log zerolog.Logger) http.Handler {
	imports := NewImportsHandler(svc, log)

	r := mux.NewRouter()
	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/imports", imports.CreateImport).Methods(http.MethodPost)
	api.HandleFunc("/imports/{id}", imports.GetImport).Methods(http.MethodGet)
	api.HandleFunc("/imports/{id}/extract", imports.ExtractPreview).Methods(http.MethodPost)
	api.HandleFunc("/imports/{id}/parse", imports.ParseWithAI).Methods(http.MethodPost)
	api.HandleFunc("/imports/{id}/post", imports.CreatePostings).Methods(http.MethodPost)

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(r),
			),
		),
	)
}
