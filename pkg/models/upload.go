package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
)

// UploadedFile is one file from a multipart upload. It lives only for the
// duration of the request.
type UploadedFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// FileStatus is the outcome of processing one uploaded file.
type FileStatus string

const (
	FileStatusSuccess FileStatus = "success"
	FileStatusError   FileStatus = "error"
)

// Preview is the parsed header plus the first rows rendered as strings.
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// FileResult reports what happened to one uploaded file.
type FileResult struct {
	FileName   string                      `json:"file_name"`
	TableName  string                      `json:"table_name"`
	Status     FileStatus                  `json:"status"`
	ErrorKind  string                      `json:"error_kind,omitempty"`
	Error      string                      `json:"error,omitempty"`
	Preview    *Preview                    `json:"preview,omitempty"`
	RowsLoaded int64                       `json:"rows_loaded"`
	Structure  []datasource.ColumnMetadata `json:"structure,omitempty"`
	Warnings   []string                    `json:"warnings,omitempty"`
}

// Succeeded reports whether the file was loaded and inspected.
func (r *FileResult) Succeeded() bool {
	return r.Status == FileStatusSuccess
}

// BatchResult reports every file of one upload, in upload order.
type BatchResult struct {
	ID         uuid.UUID     `json:"id"`
	Database   string        `json:"database"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Files      []*FileResult `json:"files"`
}

// Counts returns the number of succeeded and failed files.
func (b *BatchResult) Counts() (succeeded, failed int) {
	for _, f := range b.Files {
		if f.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
