package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/models"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/naming"
)

// mockUploadService loads every file whose name does not contain "bad".
type mockUploadService struct {
	databases []string
	listErr   error

	batches []processCall
}

type processCall struct {
	database string
	files    []models.UploadedFile
}

func (m *mockUploadService) ListDatabases(ctx context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.databases, nil
}

func (m *mockUploadService) ProcessBatch(ctx context.Context, database string, files []models.UploadedFile) *models.BatchResult {
	m.batches = append(m.batches, processCall{database: database, files: files})

	batch := &models.BatchResult{ID: uuid.New(), Database: database}
	for _, f := range files {
		res := &models.FileResult{FileName: f.Name, TableName: naming.SanitizeTableName(f.Name)}
		if strings.Contains(f.Name, "bad") {
			res.Status = models.FileStatusError
			res.ErrorKind = string(apperrors.KindParse)
			res.Error = "tokenize data: expected 2 fields in line 2, saw 3"
		} else {
			res.Status = models.FileStatusSuccess
			res.RowsLoaded = 1
			res.Preview = &models.Preview{Columns: []string{"region"}, Rows: [][]string{{"north"}}}
			res.Structure = []datasource.ColumnMetadata{{ColumnName: "region", DataType: "text"}}
		}
		batch.Files = append(batch.Files, res)
	}
	return batch
}

type uploadPart struct {
	name    string
	content string
}

// newMultipartRequest builds a multipart POST with the given form fields and files.
func newMultipartRequest(t *testing.T, target string, fields map[string]string, files ...uploadPart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(FilesField, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
