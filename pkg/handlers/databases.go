package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/services"
)

// DatabasesResponse is the body of GET /api/databases.
type DatabasesResponse struct {
	Databases []string `json:"databases"`
}

// DatabasesHandler serves the JSON API.
type DatabasesHandler struct {
	svc            services.UploadService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewDatabasesHandler creates a DatabasesHandler.
func NewDatabasesHandler(svc services.UploadService, maxUploadBytes int64, logger *zap.Logger) *DatabasesHandler {
	return &DatabasesHandler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// RegisterRoutes registers the API routes.
func (h *DatabasesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/databases", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{database}/uploads", h.Upload)
	})
}

// List handles GET /api/databases.
func (h *DatabasesHandler) List(w http.ResponseWriter, r *http.Request) {
	databases, err := h.svc.ListDatabases(r.Context())
	if err != nil {
		h.logger.Error("Failed to list databases", zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusBadGateway, "database_unavailable", logging.SanitizeError(err)); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if databases == nil {
		databases = []string{}
	}

	if err := WriteJSON(w, http.StatusOK, DatabasesResponse{Databases: databases}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Upload handles POST /api/databases/{database}/uploads. Per-file failures
// are reported inside the 200 response; only request-level problems change
// the status code.
func (h *DatabasesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	database := chi.URLParam(r, "database")

	files, err := readUploadedFiles(w, r, h.maxUploadBytes)
	if err != nil {
		status, code := uploadErrorStatus(err)
		if err := ErrorResponse(w, status, code, err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	databases, err := h.svc.ListDatabases(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadGateway, "database_unavailable", logging.SanitizeError(err)); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if !containsDatabase(databases, database) {
		if err := ErrorResponse(w, http.StatusNotFound, "database_not_found", "database '"+database+"' not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	batch := h.svc.ProcessBatch(r.Context(), database, files)
	if err := WriteJSON(w, http.StatusOK, batch); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
