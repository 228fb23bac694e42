package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/audit"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/logging"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/models"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/naming"
	sqlcheck "github.com/ekaya-inc/ekaya-csvloader/pkg/sql"
	"github.com/ekaya-inc/ekaya-csvloader/pkg/tabular"
)

// DefaultPreviewRows is used when UploadConfig.PreviewRows is zero.
const DefaultPreviewRows = 20

// UploadService defines the interface for listing databases and loading
// uploaded files into them.
type UploadService interface {
	// ListDatabases returns the non-template databases on the server.
	ListDatabases(ctx context.Context) ([]string, error)

	// ProcessBatch loads each file into database as its own table, in order.
	// A failure in one file never stops the others; per-file outcomes are in
	// the returned result.
	ProcessBatch(ctx context.Context, database string, files []models.UploadedFile) *models.BatchResult
}

// UploadConfig tunes batch processing.
type UploadConfig struct {
	// PreviewRows caps the parsed rows echoed back per file.
	PreviewRows int
}

// uploadService implements UploadService.
type uploadService struct {
	lister  datasource.DatabaseLister
	factory datasource.ConnectionFactory
	auditor *audit.SecurityAuditor
	cfg     UploadConfig
	logger  *zap.Logger
}

// NewUploadService creates a new upload service with dependencies.
func NewUploadService(
	lister datasource.DatabaseLister,
	factory datasource.ConnectionFactory,
	auditor *audit.SecurityAuditor,
	cfg UploadConfig,
	logger *zap.Logger,
) UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auditor == nil {
		auditor = audit.NewSecurityAuditor(logger)
	}
	if cfg.PreviewRows == 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	return &uploadService{
		lister:  lister,
		factory: factory,
		auditor: auditor,
		cfg:     cfg,
		logger:  logger.Named("upload"),
	}
}

// ListDatabases enumerates databases fresh on every call.
func (s *uploadService) ListDatabases(ctx context.Context) ([]string, error) {
	return s.lister.ListDatabases(ctx)
}

// ProcessBatch opens one connection handle for the whole batch and reuses it
// serially for every file.
func (s *uploadService) ProcessBatch(ctx context.Context, database string, files []models.UploadedFile) *models.BatchResult {
	batch := &models.BatchResult{
		ID:        uuid.New(),
		Database:  database,
		StartedAt: time.Now().UTC(),
		Files:     make([]*models.FileResult, 0, len(files)),
	}
	logger := s.logger.With(
		zap.String("batch_id", batch.ID.String()),
		zap.String("database", database),
	)

	if len(files) == 0 {
		batch.FinishedAt = time.Now().UTC()
		return batch
	}

	conn, err := s.factory.Connect(ctx, database)
	if err != nil {
		logger.Error("Failed to connect for upload batch", zap.String("error", logging.SanitizeError(err)))
		for _, f := range files {
			res := newFileResult(f)
			s.fail(res, err)
			batch.Files = append(batch.Files, res)
		}
		batch.FinishedAt = time.Now().UTC()
		return batch
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close connection handle", zap.String("error", logging.SanitizeError(err)))
		}
	}()

	// table name -> file that last replaced it in this batch
	loaded := make(map[string]string, len(files))

	for _, f := range files {
		res := s.processFile(ctx, batch.ID, conn, f, loaded, logger)
		batch.Files = append(batch.Files, res)
	}

	batch.FinishedAt = time.Now().UTC()
	succeeded, failed := batch.Counts()
	logger.Info("Upload batch finished",
		zap.Int("files", len(files)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Duration("duration", batch.FinishedAt.Sub(batch.StartedAt)),
	)
	return batch
}

func newFileResult(f models.UploadedFile) *models.FileResult {
	return &models.FileResult{
		FileName:  f.Name,
		TableName: naming.SanitizeTableName(f.Name),
	}
}

// processFile runs parse, sanitize, load and inspect for one file.
func (s *uploadService) processFile(
	ctx context.Context,
	batchID uuid.UUID,
	conn datasource.Connection,
	f models.UploadedFile,
	loaded map[string]string,
	logger *zap.Logger,
) *models.FileResult {
	res := newFileResult(f)
	logger = logger.With(
		zap.String("file_name", logging.SanitizeFileName(f.Name)),
		zap.String("table", res.TableName),
	)

	if !IsCSVFileName(f.Name) {
		err := apperrors.Parse("read upload", f.Name, apperrors.ErrUnsupportedFileType)
		s.auditor.LogUploadRejected(ctx, batchID, conn.Database(), logging.SanitizeFileName(f.Name), apperrors.ErrUnsupportedFileType.Error())
		return s.fail(res, err)
	}

	data, err := tabular.ParseCSV(bytes.NewReader(f.Content))
	if err != nil {
		logger.Warn("Failed to parse upload", zap.Error(err))
		return s.fail(res, apperrors.Parse("parse file", f.Name, err))
	}

	logger.Debug("Parsed upload", zap.Int("rows", data.NumRows()), zap.Int("columns", len(data.Columns)))

	header, rows := data.Preview(s.cfg.PreviewRows)
	res.Preview = &models.Preview{Columns: header, Rows: rows}

	for _, hit := range sqlcheck.CheckUploadIdentifiers(f.Name, res.TableName, data.ColumnNames()) {
		s.auditor.LogSuspiciousIdentifier(ctx, batchID, conn.Database(), audit.SuspiciousIdentifierDetails{
			FileName:    logging.SanitizeFileName(f.Name),
			Table:       res.TableName,
			Kind:        string(hit.Kind),
			Value:       logging.SanitizeFileName(hit.Value),
			Fingerprint: hit.Fingerprint,
		})
	}

	n, err := conn.ReplaceTable(ctx, res.TableName, data)
	if err != nil {
		return s.fail(res, err)
	}
	res.RowsLoaded = n
	if previous, ok := loaded[res.TableName]; ok {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Table '%s' was already loaded from '%s' in this upload and has been replaced.", res.TableName, previous))
		logger.Warn("Table name collision within batch", zap.String("previous_file", logging.SanitizeFileName(previous)))
	}
	loaded[res.TableName] = f.Name
	s.auditor.LogTableReplaced(ctx, batchID, conn.Database(), logging.SanitizeFileName(f.Name), res.TableName, n)

	structure, err := conn.DescribeTable(ctx, res.TableName)
	if err != nil {
		return s.fail(res, err)
	}
	res.Structure = structure
	res.Status = models.FileStatusSuccess

	logger.Info("Loaded file", zap.Int64("rows", n), zap.Int("columns", len(structure)))
	return res
}

// fail marks res as failed. The stored message is safe to show to users.
func (s *uploadService) fail(res *models.FileResult, err error) *models.FileResult {
	res.Status = models.FileStatusError
	res.ErrorKind = string(apperrors.KindOf(err))
	res.Error = logging.SanitizeError(err)
	return res
}

// IsCSVFileName reports whether name has a .csv extension, ignoring case.
func IsCSVFileName(name string) bool {
	return strings.EqualFold(path.Ext(name), ".csv")
}
