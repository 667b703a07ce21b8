package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itqan-app/itqan-console/internal/client"
	"github.com/itqan-app/itqan-console/internal/models"
	appErrors "github.com/itqan-app/itqan-console/pkg/errors"
)

type mockAuditRepo struct {
	page         models.AuditPage
	fetchOutcome *client.Outcome
	clearOutcome *client.Outcome
	export       models.AuditExport

	fetchCalls int
	clearCalls int
}

func (m *mockAuditRepo) Fetch(_ context.Context, period string) (models.AuditPage, *client.Outcome) {
	m.fetchCalls++
	if m.fetchOutcome != nil {
		return models.AuditPage{}, m.fetchOutcome
	}
	page := m.page
	page.Period = period
	return page, &client.Outcome{Success: true, HTTPStatus: 200}
}

func (m *mockAuditRepo) Clear(_ context.Context) *client.Outcome {
	m.clearCalls++
	if m.clearOutcome != nil {
		return m.clearOutcome
	}
	return &client.Outcome{Success: true, HTTPStatus: 200}
}

func (m *mockAuditRepo) Export(_ context.Context, period string) (models.AuditExport, *client.Outcome) {
	export := m.export
	export.Period = period
	return export, &client.Outcome{Success: true, HTTPStatus: 200}
}

func auditFixture() models.AuditPage {
	now := time.Now()
	return models.AuditPage{
		TotalLogs: 3,
		Logs: []models.AuditLogEntry{
			{ID: 1, UserName: "مشرف النظام", AuditableType: `App\Models\Student`, AuditableID: 1, Action: "confirm", CreatedAt: now},
			{ID: 2, UserName: "مشرف النظام", AuditableType: `App\Models\Center`, AuditableID: 2, Action: "delete", CreatedAt: now},
			{ID: 3, UserName: "سارة علي", AuditableType: `App\Models\Teacher`, AuditableID: 3, Action: "update",
				OldValues: map[string]interface{}{"phone": "0501"},
				NewValues: map[string]interface{}{"phone": "0502"},
				CreatedAt: now},
		},
	}
}

func TestAuditLoadProjectsRows(t *testing.T) {
	repo := &mockAuditRepo{page: auditFixture()}
	svc := NewAuditService(repo, ConfirmerFunc(yes), nil)

	rows, err := svc.Load(context.Background(), "week")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "اعتماد", rows[0].Label)
	assert.Equal(t, models.RowWarning, rows[1].Status)
	assert.Equal(t, 3, svc.Total())
}

func TestAuditSearchIsPure(t *testing.T) {
	repo := &mockAuditRepo{page: auditFixture()}
	svc := NewAuditService(repo, ConfirmerFunc(yes), nil)
	_, err := svc.Load(context.Background(), "all")
	require.NoError(t, err)
	calls := repo.fetchCalls

	assert.Len(t, svc.Search("سارة"), 1)
	assert.Len(t, svc.Search("Student"), 1)
	assert.Len(t, svc.Search("0502"), 1, "the rendered diff text is searchable")
	assert.Len(t, svc.Search(""), 3)
	assert.Len(t, svc.Search("nothing"), 0)
	assert.Equal(t, calls, repo.fetchCalls, "search never refetches")
}

func TestAuditClearRequiresConfirmation(t *testing.T) {
	repo := &mockAuditRepo{page: auditFixture()}
	svc := NewAuditService(repo, ConfirmerFunc(no), nil)
	ctx := context.Background()

	_, err := svc.Load(ctx, "all")
	require.NoError(t, err)

	err = svc.Clear(ctx)
	require.ErrorIs(t, err, appErrors.ErrAborted)
	assert.Zero(t, repo.clearCalls)
	assert.Len(t, svc.Rows(), 3, "a declined clear keeps the rows")
}

func TestAuditClearWipesLocalRows(t *testing.T) {
	repo := &mockAuditRepo{page: auditFixture()}
	svc := NewAuditService(repo, ConfirmerFunc(yes), nil)
	ctx := context.Background()

	_, err := svc.Load(ctx, "all")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))
	assert.Equal(t, 1, repo.clearCalls)
	assert.Empty(t, svc.Rows())
	assert.Zero(t, svc.Total())
}

func TestAuditLoadFailureKeepsNothing(t *testing.T) {
	repo := &mockAuditRepo{fetchOutcome: &client.Outcome{Kind: client.FailureNetwork, Message: "down"}}
	svc := NewAuditService(repo, ConfirmerFunc(yes), nil)

	_, err := svc.Load(context.Background(), "all")
	require.Error(t, err)
	assert.Empty(t, svc.Rows())
}

func TestAuditRenderLocalCSV(t *testing.T) {
	repo := &mockAuditRepo{page: auditFixture()}
	svc := NewAuditService(repo, ConfirmerFunc(yes), nil)
	rows, err := svc.Load(context.Background(), "all")
	require.NoError(t, err)

	content, err := svc.RenderLocal(rows, "csv")
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Time,Action,Actor,Resource,Changes,Status")
	assert.Contains(t, text, "اعتماد")

	_, err = svc.RenderLocal(rows, "xlsx")
	require.Error(t, err)
}

func TestAuditRenderLocalPDF(t *testing.T) {
	svc := NewAuditService(&mockAuditRepo{}, ConfirmerFunc(yes), nil)

	content, err := svc.RenderLocal([]models.AuditLogRow{{
		Label: "Update", Actor: "Operator", Resource: "Student #1", Status: models.RowSuccess, CreatedAt: time.Now(),
	}}, "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
}
