package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/models"
)

func newAPIRouter(t *testing.T, svc *mockUploadService, maxBytes int64) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewDatabasesHandler(svc, maxBytes, zaptest.NewLogger(t)).RegisterRoutes(r)
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestDatabasesHandler_List(t *testing.T) {
	router := newAPIRouter(t, &mockUploadService{databases: []string{"postgres", "salesdb"}}, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/databases", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body DatabasesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"postgres", "salesdb"}, body.Databases)
}

func TestDatabasesHandler_List_EmptyIsArray(t *testing.T) {
	router := newAPIRouter(t, &mockUploadService{}, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/databases", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"databases": []}`, rec.Body.String())
}

func TestDatabasesHandler_List_Error(t *testing.T) {
	svc := &mockUploadService{
		listErr: apperrors.Connectivity("list databases", "", errors.New("connect postgresql://postgres:hunter2@db:5432/postgres: refused")),
	}
	router := newAPIRouter(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/databases", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "database_unavailable", body["error"])
	assert.NotContains(t, body["message"], "hunter2")
}

func TestDatabasesHandler_Upload(t *testing.T) {
	svc := &mockUploadService{databases: []string{"salesdb"}}
	router := newAPIRouter(t, svc, 1<<20)

	req := newMultipartRequest(t, "/api/databases/salesdb/uploads", nil,
		uploadPart{"Q1 2024.csv", "region\nnorth\n"},
		uploadPart{"bad.csv", "a,b\n1,2,3\n"},
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.batches, 1)
	assert.Equal(t, "salesdb", svc.batches[0].database)

	var batch models.BatchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&batch))
	assert.Equal(t, "salesdb", batch.Database)
	require.Len(t, batch.Files, 2)

	assert.Equal(t, "q1_2024", batch.Files[0].TableName)
	assert.Equal(t, models.FileStatusSuccess, batch.Files[0].Status)
	require.Len(t, batch.Files[0].Structure, 1)
	assert.Equal(t, "region", batch.Files[0].Structure[0].ColumnName)

	assert.Equal(t, models.FileStatusError, batch.Files[1].Status)
	assert.Equal(t, "parse", batch.Files[1].ErrorKind)
}

func TestDatabasesHandler_Upload_UnknownDatabase(t *testing.T) {
	svc := &mockUploadService{databases: []string{"salesdb"}}
	router := newAPIRouter(t, svc, 1<<20)

	req := newMultipartRequest(t, "/api/databases/missing/uploads", nil, uploadPart{"a.csv", "x\n1\n"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "database_not_found", decodeError(t, rec)["error"])
	assert.Empty(t, svc.batches)
}

func TestDatabasesHandler_Upload_NoFiles(t *testing.T) {
	svc := &mockUploadService{databases: []string{"salesdb"}}
	router := newAPIRouter(t, svc, 1<<20)

	req := newMultipartRequest(t, "/api/databases/salesdb/uploads", map[string]string{"note": "empty"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no_files", decodeError(t, rec)["error"])
	assert.Empty(t, svc.batches)
}

func TestDatabasesHandler_Upload_NotMultipart(t *testing.T) {
	svc := &mockUploadService{databases: []string{"salesdb"}}
	router := newAPIRouter(t, svc, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/databases/salesdb/uploads", strings.NewReader("region\nnorth\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_upload", decodeError(t, rec)["error"])
}

func TestDatabasesHandler_Upload_TooLarge(t *testing.T) {
	svc := &mockUploadService{databases: []string{"salesdb"}}
	router := newAPIRouter(t, svc, 64)

	req := newMultipartRequest(t, "/api/databases/salesdb/uploads", nil,
		uploadPart{"big.csv", "x\n" + strings.Repeat("1\n", 1024)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, svc.batches)
}
