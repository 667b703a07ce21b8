package models

import "time"

// AuditLogEntry is an immutable, server-produced change record. The console
// only fetches and projects it; it is never mutated client-side.
type AuditLogEntry struct {
	ID            int64                  `json:"id"`
	UserID        int64                  `json:"user_id"`
	UserName      string                 `json:"user_name,omitempty"`
	AuditableType string                 `json:"auditable_type"`
	AuditableID   int64                  `json:"auditable_id"`
	Action        string                 `json:"action,omitempty"`
	OldValues     map[string]interface{} `json:"old_values,omitempty"`
	NewValues     map[string]interface{} `json:"new_values,omitempty"`
	IPAddress     string                 `json:"ip_address,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// SystemActorID marks entries produced by the platform itself rather than
// an operator.
const SystemActorID int64 = 0

// RowStatus tags a projected audit row for display.
type RowStatus string

const (
	RowSuccess RowStatus = "success"
	RowFailure RowStatus = "failure"
	RowWarning RowStatus = "warning"
)

// AuditLogRow is the display projection of an AuditLogEntry. It is derived
// on every fetch and never persisted.
type AuditLogRow struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Actor     string    `json:"actor"`
	Resource  string    `json:"resource"`
	Diff      string    `json:"diff"`
	Status    RowStatus `json:"status"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditPage is the payload of GET /reports/audit-logs/{period}.
type AuditPage struct {
	Period    string          `json:"period"`
	TotalLogs int             `json:"total_logs"`
	Logs      []AuditLogEntry `json:"logs"`
}

// AuditExport is the payload of the server-side export endpoint.
type AuditExport struct {
	Period   string `json:"period"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
