package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/models"
)

// FilesField is the multipart field carrying uploaded files.
const FilesField = "files"

// maxMemory is how much of a multipart body is buffered in memory before
// spilling to temporary files.
const maxMemory = 32 << 20

var (
	errNoFiles       = errors.New("no files uploaded")
	errUploadTooBig  = errors.New("upload exceeds size limit")
	errMalformedForm = errors.New("malformed multipart form")
)

// readUploadedFiles parses a multipart request body and returns its files in
// the order the client sent them.
func readUploadedFiles(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]models.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, errUploadTooBig
		}
		return nil, fmt.Errorf("%w: %v", errMalformedForm, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[FilesField]
	if len(headers) == 0 {
		return nil, errNoFiles
	}

	files := make([]models.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		files = append(files, models.UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return files, nil
}

// uploadErrorStatus maps readUploadedFiles errors to HTTP status codes.
func uploadErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errUploadTooBig):
		return http.StatusRequestEntityTooLarge, "upload_too_large"
	case errors.Is(err, errNoFiles):
		return http.StatusBadRequest, "no_files"
	default:
		return http.StatusBadRequest, "invalid_upload"
	}
}

func containsDatabase(databases []string, name string) bool {
	return slices.Contains(databases, name)
}
