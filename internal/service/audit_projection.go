package service

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/itqan-app/itqan-console/internal/models"
)

const (
	// maxDiffFields caps how many changed fields the rendered diff shows.
	maxDiffFields = 2
	// maxValueRunes bounds each rendered value.
	maxValueRunes = 32
)

// actionLabels maps the server's explicit action tags to display labels.
var actionLabels = map[string]string{
	"create":  "إنشاء",
	"update":  "تعديل",
	"delete":  "حذف",
	"login":   "تسجيل الدخول",
	"logout":  "تسجيل الخروج",
	"confirm": "اعتماد",
	"reject":  "رفض",
}

// fieldLabels translates snapshot field names for the diff summary.
var fieldLabels = map[string]string{
	"name":           "الاسم",
	"email":          "البريد الإلكتروني",
	"phone":          "رقم الهاتف",
	"status":         "الحالة",
	"grade_level":    "المرحلة الدراسية",
	"circle":         "الحلقة",
	"guardian_email": "بريد ولي الأمر",
	"owner_name":     "اسم المالك",
	"city":           "المدينة",
}

// modelSuffixes are stripped when inferring a label from a type name.
var modelSuffixes = []string{"Model", "Record", "Entity", "Controller"}

// ProjectAuditEntries turns raw change-log records into display rows. Pure
// function: recomputed on every fetch, never patched incrementally.
func ProjectAuditEntries(entries []models.AuditLogEntry) []models.AuditLogRow {
	rows := make([]models.AuditLogRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, projectRow(entry))
	}
	return rows
}

func projectRow(entry models.AuditLogEntry) models.AuditLogRow {
	return models.AuditLogRow{
		ID:        entry.ID,
		Label:     actionLabel(entry),
		Actor:     actorLabel(entry),
		Resource:  resourceLabel(entry),
		Diff:      diffSummary(entry.OldValues, entry.NewValues),
		Status:    deriveStatus(entry),
		IPAddress: entry.IPAddress,
		CreatedAt: entry.CreatedAt,
	}
}

func actionLabel(entry models.AuditLogEntry) string {
	if entry.Action != "" {
		if label, ok := actionLabels[strings.ToLower(entry.Action)]; ok {
			return label
		}
		return entry.Action
	}
	// Approximate fallback: derive something readable from the target
	// model's type name.
	return baseModelName(entry.AuditableType)
}

func actorLabel(entry models.AuditLogEntry) string {
	if entry.UserName != "" {
		return entry.UserName
	}
	if entry.UserID == models.SystemActorID {
		return "النظام"
	}
	return fmt.Sprintf("user #%d", entry.UserID)
}

func resourceLabel(entry models.AuditLogEntry) string {
	name := baseModelName(entry.AuditableType)
	if entry.AuditableID == 0 {
		return name
	}
	return fmt.Sprintf("%s #%d", name, entry.AuditableID)
}

// baseModelName extracts the last path segment of a fully-qualified type
// name and strips common model suffixes.
func baseModelName(typeName string) string {
	if typeName == "" {
		return "record"
	}
	name := typeName
	if idx := strings.LastIndexAny(name, `\/.`); idx >= 0 {
		name = name[idx+1:]
	}
	for _, suffix := range modelSuffixes {
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	return name
}

// diffSummary renders the changed fields as "<label>: <old> → <new>",
// capped to the first two changes plus an ellipsis marker.
func diffSummary(oldValues, newValues map[string]interface{}) string {
	fields := make([]string, 0, len(oldValues)+len(newValues))
	seen := make(map[string]bool)
	for field := range oldValues {
		if !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
	}
	for field := range newValues {
		if !seen[field] {
			seen[field] = true
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	parts := make([]string, 0, maxDiffFields)
	changed := 0
	for _, field := range fields {
		oldValue, hadOld := oldValues[field]
		newValue, hasNew := newValues[field]
		if hadOld && hasNew && reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		changed++
		if len(parts) < maxDiffFields {
			parts = append(parts, fmt.Sprintf("%s: %s → %s",
				fieldLabel(field), formatValue(oldValue, hadOld), formatValue(newValue, hasNew)))
		}
	}
	summary := strings.Join(parts, "، ")
	if changed > maxDiffFields {
		summary += " …"
	}
	return summary
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

func formatValue(value interface{}, present bool) string {
	if !present || value == nil {
		return "—"
	}
	switch v := value.(type) {
	case string:
		return `"` + truncateRunes(v) + `"`
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return truncateRunes(fmt.Sprint(v))
		}
		return truncateRunes(string(raw))
	}
}

func truncateRunes(s string) string {
	runes := []rune(s)
	if len(runes) <= maxValueRunes {
		return s
	}
	return string(runes[:maxValueRunes]) + "…"
}

// deriveStatus tags a row for display. Delete-like actions always warn.
// Everything else surfaces as success: a failed fetch never produces rows
// at all.
func deriveStatus(entry models.AuditLogEntry) models.RowStatus {
	action := strings.ToLower(entry.Action)
	if strings.Contains(action, "delet") || strings.Contains(entry.Action, "حذف") {
		return models.RowWarning
	}
	return models.RowSuccess
}
