// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant upload events in structured JSON format for easy
// parsing and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSuspiciousIdentifier is logged when libinjection flags a file, table or column name.
	EventSuspiciousIdentifier SecurityEventType = "suspicious_identifier"
	// EventUploadRejected is logged when a file is refused before reaching the database.
	EventUploadRejected SecurityEventType = "upload_rejected"
	// EventTableReplaced is logged every time a table is dropped and recreated.
	EventTableReplaced SecurityEventType = "table_replaced"
)

type contextKey struct{}

var clientIPKey contextKey

// WithClientIP returns a context carrying the requesting client's address.
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP)
}

// ClientIPFromContext returns the address stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	BatchID   uuid.UUID         `json:"batch_id"`
	Database  string            `json:"database"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SuspiciousIdentifierDetails contains specifics of a flagged identifier.
type SuspiciousIdentifierDetails struct {
	FileName    string `json:"file_name"`
	Table       string `json:"table"`
	Kind        string `json:"kind"` // file_name, table or column
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is named "security_audit" for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) event(ctx context.Context, eventType SecurityEventType, batchID uuid.UUID, database, severity string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		BatchID:   batchID,
		Database:  database,
		ClientIP:  ClientIPFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
	// Marshaling known types cannot fail
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// LogSuspiciousIdentifier records an identifier that matched a SQL injection
// pattern. Identifiers are always quoted, so this is logged at WARN level
// with "warning" severity rather than as an attack.
func (a *SecurityAuditor) LogSuspiciousIdentifier(
	ctx context.Context,
	batchID uuid.UUID,
	database string,
	details SuspiciousIdentifierDetails,
) {
	event, eventJSON := a.event(ctx, EventSuspiciousIdentifier, batchID, database, "warning", details)

	a.logger.Warn("Suspicious identifier in upload",
		zap.String("event_json", eventJSON),
		zap.String("batch_id", batchID.String()),
		zap.String("database", database),
		zap.String("file_name", details.FileName),
		zap.String("table", details.Table),
		zap.String("kind", details.Kind),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogUploadRejected records a file that was refused before any database work.
func (a *SecurityAuditor) LogUploadRejected(
	ctx context.Context,
	batchID uuid.UUID,
	database, fileName, reason string,
) {
	event, eventJSON := a.event(ctx, EventUploadRejected, batchID, database, "warning", map[string]string{
		"file_name": fileName,
		"reason":    reason,
	})

	a.logger.Warn("Upload rejected",
		zap.String("event_json", eventJSON),
		zap.String("batch_id", batchID.String()),
		zap.String("database", database),
		zap.String("file_name", fileName),
		zap.String("reason", reason),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogTableReplaced records a destructive drop-and-recreate for the audit trail.
func (a *SecurityAuditor) LogTableReplaced(
	ctx context.Context,
	batchID uuid.UUID,
	database, fileName, table string,
	rows int64,
) {
	event, eventJSON := a.event(ctx, EventTableReplaced, batchID, database, "info", map[string]any{
		"file_name": fileName,
		"table":     table,
		"rows":      rows,
	})

	a.logger.Info("Table replaced",
		zap.String("event_json", eventJSON),
		zap.String("batch_id", batchID.String()),
		zap.String("database", database),
		zap.String("file_name", fileName),
		zap.String("table", table),
		zap.Int64("rows", rows),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}
