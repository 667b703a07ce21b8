package models

import "time"

// EntityKind identifies which pending collection an entity belongs to. The
// values double as the path segments of the platform API.
type EntityKind string

const (
	KindCenter  EntityKind = "centers"
	KindTeacher EntityKind = "teachers"
	KindStudent EntityKind = "students"
)

// Valid reports whether the kind is one of the known collections.
func (k EntityKind) Valid() bool {
	switch k {
	case KindCenter, KindTeacher, KindStudent:
		return true
	}
	return false
}

// Status is the server-authoritative lifecycle state of a pending entity.
// The console never invents a status locally; it only reflects what an
// accepted mutation response confirmed.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted"
)

// transitions lists the reachable states per current state. deleted is
// absorbing and is never reachable from pending: an operator must decide
// approve or reject first so the decision stays in the audit trail.
var transitions = map[Status][]Status{
	StatusPending:  {StatusActive, StatusRejected},
	StatusActive:   {StatusDeleted},
	StatusRejected: {StatusDeleted},
	StatusDeleted:  {},
}

// CanTransition reports whether moving from s to the target state is legal.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Guardian is the account responsible for a student, linkable after the
// student record already exists.
type Guardian struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PendingEntity is a center, teacher or student awaiting (or past) an
// approval decision. Kind-specific fields are optional and omitted for the
// kinds they do not apply to.
type PendingEntity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Student payload.
	GradeLevel string    `json:"grade_level,omitempty"`
	Circle     string    `json:"circle,omitempty"`
	Guardian   *Guardian `json:"guardian,omitempty"`

	// Center payload.
	OwnerName string `json:"owner_name,omitempty"`
	City      string `json:"city,omitempty"`
}

// ProvisionedGuardian is returned by the provision-and-link endpoint: the
// only place in the system where a generated credential reaches the
// operator-facing layer.
type ProvisionedGuardian struct {
	GuardianEmail   string `json:"guardian_email"`
	DefaultPassword string `json:"default_password"`
}
