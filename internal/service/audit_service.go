package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
	appErrors "github.com/itqan-app/itqan-console/pkg/errors"
	"github.com/itqan-app/itqan-console/pkg/export"
)

type auditReader interface {
	Fetch(ctx context.Context, period string) (models.AuditPage, *client.Outcome)
	Clear(ctx context.Context) *client.Outcome
	Export(ctx context.Context, period string) (models.AuditExport, *client.Outcome)
}

// AuditService loads raw change-log entries, projects them for display and
// renders local exports. The projection is recomputed on every load.
type AuditService struct {
	repo      auditReader
	confirmer Confirmer
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger

	mu     sync.Mutex
	seq    uint64
	period string
	total  int
	rows   []models.AuditLogRow
}

// NewAuditService constructs an audit service.
func NewAuditService(repo auditReader, confirmer Confirmer, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		repo:      repo,
		confirmer: confirmer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// Load fetches and projects the log for a period. Rapid period changes may
// leave older fetches in flight; their late responses are discarded so the
// last issued call's state wins.
func (s *AuditService) Load(ctx context.Context, period string) ([]models.AuditLogRow, error) {
	s.mu.Lock()
	s.seq++
	mySeq := s.seq
	s.mu.Unlock()

	page, outcome := s.repo.Fetch(ctx, period)

	s.mu.Lock()
	defer s.mu.Unlock()
	if mySeq < s.seq {
		return nil, nil
	}
	if !outcome.Success {
		return nil, outcome.Err()
	}

	rows := ProjectAuditEntries(page.Logs)
	s.period = page.Period
	s.total = page.TotalLogs
	s.rows = rows

	out := make([]models.AuditLogRow, len(rows))
	copy(out, rows)
	return out, nil
}

// Rows returns a copy of the last loaded projection.
func (s *AuditService) Rows() []models.AuditLogRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLogRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Total returns the server-reported entry count for the loaded period.
func (s *AuditService) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Search filters the projected rows with a pure substring match across
// label, actor, resource and diff text. No fetch is triggered.
func (s *AuditService) Search(query string) []models.AuditLogRow {
	rows := s.Rows()
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}
	matched := make([]models.AuditLogRow, 0, len(rows))
	for _, row := range rows {
		haystack := strings.ToLower(row.Label + " " + row.Actor + " " + row.Resource + " " + row.Diff)
		if strings.Contains(haystack, query) {
			matched = append(matched, row)
		}
	}
	return matched
}

// Clear wipes the server-side log after an explicit confirmation.
func (s *AuditService) Clear(ctx context.Context) error {
	if s.confirmer == nil || !s.confirmer.Confirm("Clear the entire audit log? This cannot be undone.") {
		return appErrors.ErrAborted
	}
	outcome := s.repo.Clear(ctx)
	if outcome.Success {
		s.mu.Lock()
		s.rows = nil
		s.total = 0
		s.mu.Unlock()
	}
	return outcome.Err()
}

// ExportRemote asks the platform to render the period's log.
func (s *AuditService) ExportRemote(ctx context.Context, period string) (models.AuditExport, error) {
	result, outcome := s.repo.Export(ctx, period)
	return result, outcome.Err()
}

// RenderLocal renders projected rows into csv or pdf bytes.
func (s *AuditService) RenderLocal(rows []models.AuditLogRow, format string) ([]byte, error) {
	headers := []string{"Time", "Action", "Actor", "Resource", "Changes", "Status"}
	dataset := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Time":     row.CreatedAt.Format("2006-01-02 15:04"),
			"Action":   row.Label,
			"Actor":    row.Actor,
			"Resource": row.Resource,
			"Changes":  row.Diff,
			"Status":   string(row.Status),
		})
	}

	switch format {
	case "pdf":
		return s.pdf.Render(dataset, "Audit Log")
	case "csv", "":
		return s.csv.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}
}
