package stubserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/itqan-app/itqan-console/internal/models"
	"github.com/itqan-app/itqan-console/pkg/logger"
	"github.com/itqan-app/itqan-console/pkg/middleware/requestid"
	"github.com/itqan-app/itqan-console/pkg/response"
)

// Server is an in-memory stand-in for the remote platform API. It serves
// the exact HTTP/JSON contract the console is built against, so the CLI
// can run locally and the integration tests can drive the full pipeline.
type Server struct {
	store           *Store
	sessionSecret   string
	defaultPassword string
	logger          *zap.Logger
	csrf            *csrfGuard
}

// NewServer constructs a stub server around the given store.
func NewServer(store *Store, sessionSecret, defaultPassword string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultPassword == "" {
		defaultPassword = "Quran@123"
	}
	return &Server{
		store:           store,
		sessionSecret:   sessionSecret,
		defaultPassword: defaultPassword,
		logger:          log,
		csrf:            newCSRFGuard(),
	}
}

// Router builds the gin engine with the platform routes mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/csrf-cookie", s.csrf.Bootstrap)

	session := sessionRequired(s.sessionSecret)
	guarded := s.csrf.Require()

	for _, kind := range []models.EntityKind{models.KindCenter, models.KindTeacher, models.KindStudent} {
		kind := kind
		base := "/" + string(kind) + "/pending"
		r.GET(base, session, s.listPending(kind))
		if kind != models.KindStudent {
			r.POST(base+"/:id/confirm", session, guarded, s.transition(kind, models.StatusActive))
			r.POST(base+"/:id/reject", session, guarded, s.transition(kind, models.StatusRejected))
		}
		r.DELETE(base+"/:id", session, guarded, s.transition(kind, models.StatusDeleted))
	}

	// The student POST surface mixes /pending/{id}/… with /{id}/… paths,
	// which gin's per-method tree cannot hold side by side; a single
	// wildcard route dispatches them instead.
	r.POST("/students/*rest", session, guarded, s.studentDispatch)

	r.GET("/reports/audit-logs/*rest", session, s.auditGet)
	r.DELETE("/reports/audit-logs/clear", session, guarded, s.auditClear)

	return r
}

// Run serves the stub on the given port until the process exits.
func (s *Server) Run(port int) error {
	return s.Router().Run(fmt.Sprintf(":%d", port))
}

func (s *Server) listPending(kind models.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.Status(c.DefaultQuery("status", string(models.StatusPending)))
		response.OK(c, s.store.List(kind, status))
	}
}

func (s *Server) transition(kind models.EntityKind, to models.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			response.Fail(c, http.StatusNotFound, "entity not found")
			return
		}
		s.applyTransition(c, kind, id, to)
	}
}

func (s *Server) applyTransition(c *gin.Context, kind models.EntityKind, id int64, to models.Status) {
	found, refusal := s.store.Transition(kind, id, to, actorName(c))
	if !found {
		response.Fail(c, http.StatusNotFound, "entity not found")
		return
	}
	if refusal != "" {
		response.Refused(c, refusal)
		return
	}
	response.Message(c, fmt.Sprintf("entity %d is now %s", id, to))
}

func (s *Server) studentDispatch(c *gin.Context) {
	parts := strings.Split(strings.Trim(c.Param("rest"), "/"), "/")

	switch {
	case len(parts) == 3 && parts[0] == "pending":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			response.Fail(c, http.StatusNotFound, "entity not found")
			return
		}
		switch parts[2] {
		case "confirm":
			s.applyTransition(c, models.KindStudent, id, models.StatusActive)
		case "reject":
			s.applyTransition(c, models.KindStudent, id, models.StatusRejected)
		default:
			response.Fail(c, http.StatusNotFound, "unknown action")
		}

	case len(parts) == 2:
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			response.Fail(c, http.StatusNotFound, "student not found")
			return
		}
		switch parts[1] {
		case "link-guardian":
			s.linkGuardian(c, id)
		case "create-guardian":
			s.createGuardian(c, id)
		default:
			response.Fail(c, http.StatusNotFound, "unknown action")
		}

	default:
		response.Fail(c, http.StatusNotFound, "unknown action")
	}
}

type guardianRequest struct {
	GuardianEmail string `json:"guardian_email"`
}

func (s *Server) linkGuardian(c *gin.Context, studentID int64) {
	var req guardianRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.GuardianEmail) == "" {
		response.ValidationFail(c, map[string][]string{"guardian_email": {"guardian email is required"}})
		return
	}

	found, refusal := s.store.LinkGuardian(studentID, req.GuardianEmail, actorName(c))
	if !found {
		response.Fail(c, http.StatusNotFound, "student not found")
		return
	}
	if refusal != "" {
		// Unregistered guardian: the lookup failed, not the transport.
		response.Fail(c, http.StatusNotFound, refusal)
		return
	}
	response.Message(c, "guardian linked")
}

func (s *Server) createGuardian(c *gin.Context, studentID int64) {
	var req guardianRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.GuardianEmail) == "" {
		response.ValidationFail(c, map[string][]string{"guardian_email": {"guardian email is required"}})
		return
	}

	provisioned, found, refusal := s.store.ProvisionGuardian(studentID, req.GuardianEmail, s.defaultPassword, actorName(c))
	if !found {
		response.Fail(c, http.StatusNotFound, "student not found")
		return
	}
	if refusal != "" {
		response.Refused(c, refusal)
		return
	}
	response.OK(c, provisioned)
}

func (s *Server) auditGet(c *gin.Context) {
	rest := strings.Trim(c.Param("rest"), "/")

	if period, ok := strings.CutPrefix(rest, "export/"); ok {
		s.auditExport(c, period)
		return
	}
	if rest == "" {
		rest = "all"
	}

	entries := s.store.Logs(rest)
	response.OK(c, models.AuditPage{Period: rest, TotalLogs: len(entries), Logs: entries})
}

func (s *Server) auditExport(c *gin.Context, period string) {
	entries := s.store.Logs(period)

	var b strings.Builder
	b.WriteString("id,actor,action,resource,created_at\n")
	for _, entry := range entries {
		b.WriteString(fmt.Sprintf("%d,%s,%s,%s#%d,%s\n",
			entry.ID, entry.UserName, entry.Action, entry.AuditableType, entry.AuditableID,
			entry.CreatedAt.Format(time.RFC3339)))
	}

	response.OK(c, models.AuditExport{
		Period:   period,
		Format:   "csv",
		Filename: fmt.Sprintf("audit-logs-%s.csv", period),
		Content:  b.String(),
	})
}

func (s *Server) auditClear(c *gin.Context) {
	s.store.ClearLogs()
	response.Message(c, "audit log cleared")
}
