package stubserver

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/itqan-app/itqan-console/internal/models"
)

type guardianAccount struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
}

// Store holds the stub platform's in-memory state. It enforces the same
// lifecycle and linking rules the real backend does so the console can be
// exercised against realistic refusals.
type Store struct {
	mu        sync.Mutex
	entities  map[models.EntityKind]map[int64]*models.PendingEntity
	guardians map[string]*guardianAccount
	logs      []models.AuditLogEntry
	nextID    int64
}

// NewStore builds an empty store.
func NewStore() *Store {
	entities := make(map[models.EntityKind]map[int64]*models.PendingEntity)
	for _, kind := range []models.EntityKind{models.KindCenter, models.KindTeacher, models.KindStudent} {
		entities[kind] = make(map[int64]*models.PendingEntity)
	}
	return &Store{
		entities:  entities,
		guardians: make(map[string]*guardianAccount),
		nextID:    1000,
	}
}

// Seed fills the store with a small demo dataset.
func (s *Store) Seed() {
	s.AddEntity(models.KindCenter, models.PendingEntity{Name: "مركز النور", Email: "alnoor@example.com", OwnerName: "أحمد سالم", City: "جدة"})
	s.AddEntity(models.KindTeacher, models.PendingEntity{Name: "خالد العمري", Email: "khaled@example.com", Phone: "0501234567"})
	s.AddEntity(models.KindStudent, models.PendingEntity{Name: "يوسف محمد", GradeLevel: "5", Circle: "حلقة الفجر"})
	s.RegisterGuardian("سارة علي", "sara@example.com", "registered-password")
}

// AddEntity inserts a new pending entity and returns its id.
func (s *Store) AddEntity(kind models.EntityKind, entity models.PendingEntity) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entity.ID = s.nextID
	entity.Status = models.StatusPending
	entity.CreatedAt = time.Now().UTC()
	s.entities[kind][entity.ID] = &entity
	return entity.ID
}

// RegisterGuardian creates a guardian account directly, as the public
// registration flow would.
func (s *Store) RegisterGuardian(name, email, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	s.nextID++
	account := &guardianAccount{ID: s.nextID, Name: name, Email: strings.ToLower(email), PasswordHash: string(hash)}
	s.guardians[account.Email] = account
	return account.ID
}

// List returns the entities of a kind in the given status.
func (s *Store) List(kind models.EntityKind, status models.Status) []models.PendingEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.PendingEntity, 0)
	for _, entity := range s.entities[kind] {
		if entity.Status == status {
			items = append(items, *entity)
		}
	}
	return items
}

// Get returns a copy of one entity.
func (s *Store) Get(kind models.EntityKind, id int64) (models.PendingEntity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.entities[kind][id]
	if !ok {
		return models.PendingEntity{}, false
	}
	return *entity, true
}

// Transition applies a lifecycle change. The boolean reports whether the
// entity exists; refusal carries the logical failure message otherwise.
func (s *Store) Transition(kind models.EntityKind, id int64, to models.Status, actor string) (found bool, refusal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[kind][id]
	if !ok || entity.Status == models.StatusDeleted {
		return false, ""
	}
	if !entity.Status.CanTransition(to) {
		return true, "entity is not in a state that allows this action"
	}

	old := entity.Status
	entity.Status = to
	s.record(actor, kind, id, transitionAction(to), map[string]interface{}{"status": string(old)}, map[string]interface{}{"status": string(to)})
	return true, ""
}

func transitionAction(to models.Status) string {
	switch to {
	case models.StatusActive:
		return "confirm"
	case models.StatusRejected:
		return "reject"
	case models.StatusDeleted:
		return "delete"
	}
	return "update"
}

// LinkGuardian attaches a registered guardian account to a student.
// Retrying an already-established link with the same email succeeds
// without creating a duplicate relationship.
func (s *Store) LinkGuardian(studentID int64, email, actor string) (found bool, refusal string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.entities[models.KindStudent][studentID]
	if !ok || student.Status == models.StatusDeleted {
		return false, ""
	}

	account, ok := s.guardians[strings.ToLower(email)]
	if !ok {
		return true, "ولي الأمر غير مسجل في المنصة"
	}

	if student.Guardian != nil && student.Guardian.ID == account.ID {
		return true, ""
	}

	student.Guardian = &models.Guardian{ID: account.ID, Name: account.Name, Email: account.Email}
	s.record(actor, models.KindStudent, studentID, "update",
		map[string]interface{}{"guardian_email": nil},
		map[string]interface{}{"guardian_email": account.Email})
	return true, ""
}

// ProvisionGuardian creates a guardian account with the default credential
// and links it to the student in one step.
func (s *Store) ProvisionGuardian(studentID int64, email, defaultPassword, actor string) (models.ProvisionedGuardian, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.entities[models.KindStudent][studentID]
	if !ok || student.Status == models.StatusDeleted {
		return models.ProvisionedGuardian{}, false, ""
	}

	normalized := strings.ToLower(email)
	if _, exists := s.guardians[normalized]; exists {
		return models.ProvisionedGuardian{}, true, "ولي الأمر مسجل بالفعل، استخدم الربط المباشر"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.ProvisionedGuardian{}, true, "failed to provision account"
	}

	s.nextID++
	account := &guardianAccount{ID: s.nextID, Name: email, Email: normalized, PasswordHash: string(hash)}
	s.guardians[normalized] = account
	student.Guardian = &models.Guardian{ID: account.ID, Name: account.Name, Email: account.Email}

	s.record(actor, models.KindStudent, studentID, "create",
		nil,
		map[string]interface{}{"guardian_email": account.Email})

	return models.ProvisionedGuardian{GuardianEmail: account.Email, DefaultPassword: defaultPassword}, true, ""
}

// Logs returns the audit entries recorded within the period: "today",
// "week", "month" or "all".
func (s *Store) Logs(period string) []models.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Time{}
	now := time.Now().UTC()
	switch period {
	case "today":
		cutoff = now.Truncate(24 * time.Hour)
	case "week":
		cutoff = now.AddDate(0, 0, -7)
	case "month":
		cutoff = now.AddDate(0, -1, 0)
	}

	entries := make([]models.AuditLogEntry, 0, len(s.logs))
	for _, entry := range s.logs {
		if entry.CreatedAt.Before(cutoff) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// ClearLogs wipes the audit trail.
func (s *Store) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
}

// record appends an audit entry. Caller holds the lock.
func (s *Store) record(actor string, kind models.EntityKind, id int64, action string, oldValues, newValues map[string]interface{}) {
	s.nextID++
	entry := models.AuditLogEntry{
		ID:            s.nextID,
		UserID:        1,
		UserName:      actor,
		AuditableType: auditableType(kind),
		AuditableID:   id,
		Action:        action,
		OldValues:     oldValues,
		NewValues:     newValues,
		IPAddress:     "127.0.0.1",
		CreatedAt:     time.Now().UTC(),
	}
	if actor == "" {
		entry.UserID = models.SystemActorID
		entry.UserName = ""
	}
	s.logs = append(s.logs, entry)
}

func auditableType(kind models.EntityKind) string {
	switch kind {
	case models.KindCenter:
		return `App\Models\Center`
	case models.KindTeacher:
		return `App\Models\Teacher`
	default:
		return `App\Models\Student`
	}
}
