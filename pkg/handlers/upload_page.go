package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/models"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/services"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/session"
	"github.com/ekaya-inc/ekaya-csvloader/ui"
)

// PageConfig holds presentation settings for the upload page.
type PageConfig struct {
	MaxUploadBytes int64
}

// pageView is the data behind ui/templates/index.html.
type pageView struct {
	Databases   []string
	Selected    string
	ListError   string
	Notice      string
	MaxUploadMB int64
	Batch       *batchView
}

type batchView struct {
	ID    string
	Files []fileView
}

type fileView struct {
	FileName      string
	TableName     string
	Success       bool
	Banner        string
	Warnings      []string
	PreviewHTML   template.HTML
	StructureHTML template.HTML
}

// UploadPageHandler serves the HTML upload page.
type UploadPageHandler struct {
	svc      services.UploadService
	sessions *session.Store
	tmpl     *template.Template
	cfg      PageConfig
	logger   *zap.Logger
}

// NewUploadPageHandler creates an UploadPageHandler.
func NewUploadPageHandler(
	svc services.UploadService,
	sessions *session.Store,
	tmpl *template.Template,
	cfg PageConfig,
	logger *zap.Logger,
) *UploadPageHandler {
	return &UploadPageHandler{
		svc:      svc,
		sessions: sessions,
		tmpl:     tmpl,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterRoutes registers the page routes.
func (h *UploadPageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/database", h.SelectDatabase)
	r.Post("/upload", h.Upload)
}

// Index handles GET /. Databases are listed fresh on every load.
func (h *UploadPageHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := h.newView(r)
	h.render(w, http.StatusOK, view)
}

// SelectDatabase handles POST /database by remembering the choice and
// redirecting back to the page.
func (h *UploadPageHandler) SelectDatabase(w http.ResponseWriter, r *http.Request) {
	database := r.PostFormValue("database")
	if err := h.sessions.SetSelectedDatabase(w, r, database); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err))
		http.Error(w, "failed to save selection", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Upload handles POST /upload. Each file is processed in order and rendered
// below the form.
func (h *UploadPageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	files, readErr := readUploadedFiles(w, r, h.cfg.MaxUploadBytes)

	database := r.FormValue("database")
	if database == "" {
		database = h.sessions.SelectedDatabase(r)
	}

	view := h.newView(r)
	if readErr != nil {
		status, _ := uploadErrorStatus(readErr)
		view.Notice = fmt.Sprintf("Error reading upload: %v", readErr)
		h.render(w, status, view)
		return
	}
	if len(view.Databases) == 0 {
		// Listing failed or is empty; the view already carries the banner.
		h.render(w, http.StatusOK, view)
		return
	}
	if !containsDatabase(view.Databases, database) {
		view.Notice = fmt.Sprintf("Error creating engine for database '%s': %v", database, apperrors.ErrNotFound)
		h.render(w, http.StatusNotFound, view)
		return
	}

	view.Selected = database
	if err := h.sessions.SetSelectedDatabase(w, r, database); err != nil {
		h.logger.Warn("Failed to save session", zap.Error(err))
	}

	batch := h.svc.ProcessBatch(r.Context(), database, files)
	view.Batch = newBatchView(batch)
	h.render(w, http.StatusOK, view)
}

// newView lists databases and resolves the selection. A stored selection
// that no longer exists falls back to the first database.
func (h *UploadPageHandler) newView(r *http.Request) *pageView {
	view := &pageView{MaxUploadMB: h.cfg.MaxUploadBytes >> 20}

	databases, err := h.svc.ListDatabases(r.Context())
	if err != nil {
		view.ListError = fmt.Sprintf("Error fetching databases: %s", logging.SanitizeError(err))
	}
	view.Databases = databases

	selected := h.sessions.SelectedDatabase(r)
	if containsDatabase(databases, selected) {
		view.Selected = selected
	} else if len(databases) > 0 {
		view.Selected = databases[0]
	}
	return view
}

func (h *UploadPageHandler) render(w http.ResponseWriter, status int, view *pageView) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, ui.PageTemplate, view); err != nil {
		h.logger.Error("Failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func newBatchView(batch *models.BatchResult) *batchView {
	bv := &batchView{
		ID:    batch.ID.String(),
		Files: make([]fileView, 0, len(batch.Files)),
	}
	for _, res := range batch.Files {
		fv := fileView{
			FileName:    res.FileName,
			TableName:   res.TableName,
			Success:     res.Succeeded(),
			Banner:      fileBanner(batch.Database, res),
			Warnings:    res.Warnings,
			PreviewHTML: renderPreviewHTML(res.Preview),
		}
		if fv.Success {
			fv.StructureHTML = renderStructureHTML(res.Structure)
		}
		bv.Files = append(bv.Files, fv)
	}
	return bv
}

// fileBanner returns the success or error message for one file, worded by
// the stage that failed.
func fileBanner(database string, res *models.FileResult) string {
	if res.Succeeded() {
		return fmt.Sprintf("Data uploaded successfully to table '%s'.", res.TableName)
	}
	switch apperrors.Kind(res.ErrorKind) {
	case apperrors.KindConnectivity:
		return fmt.Sprintf("Error creating engine for database '%s': %s", database, res.Error)
	case apperrors.KindWrite:
		return fmt.Sprintf("Error uploading data to table '%s': %s", res.TableName, res.Error)
	case apperrors.KindRead:
		return fmt.Sprintf("Error fetching structure for table '%s': %s", res.TableName, res.Error)
	default:
		return fmt.Sprintf("Error processing file %s: %s", res.FileName, res.Error)
	}
}
