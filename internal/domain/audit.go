package domain

import "time"

// AuditAction names the kind of change an audit entry records.
type AuditAction string

const (
	AuditCreate         AuditAction = "CREATE"
	AuditUpdate         AuditAction = "UPDATE"
	AuditUpdatePosition AuditAction = "UPDATE_POSITION"
	AuditShift          AuditAction = "SHIFT"
	AuditDelete         AuditAction = "DELETE"
)

// AuditEntry is one append-only row of an activity's history. Entries
// outlive the activity they describe.
type AuditEntry struct {
	ID         int64
	ActivityID int64
	Action     AuditAction
	Field      *string
	OldValue   *string
	NewValue   *string
	Actor      string
	ChangedAt  time.Time
}

// AuditCursor is the keyset position for paging newest-first audit history.
type AuditCursor struct {
	ChangedAt time.Time
	ID        int64
}

type fieldChange struct {
	field string
	old   string
	new   string
}

// trackedFields lists the columns whose edits are audited individually.
var trackedFields = []struct {
	name  string
	value func(Activity) string
}{
	{"activity_name", func(a Activity) string { return a.Name }},
	{"description", func(a Activity) string { return a.Description }},
	{"activity_type", func(a Activity) string { return string(a.Type) }},
	{"swimlane", func(a Activity) string { return a.Swimlane }},
	{"grid_location", func(a Activity) string { return a.GridLocation }},
	{"connections", func(a Activity) string { return a.Connections }},
	{"task_time_size", func(a Activity) string { return a.TaskTime.Size }},
	{"labor_rate_size", func(a Activity) string { return a.LaborRate.Size }},
	{"volume_size", func(a Activity) string { return a.Volume.Size }},
	{"transformation_plan", func(a Activity) string { return string(a.TransformationPlan) }},
	{"status", func(a Activity) string { return string(a.Status) }},
	{"data_confidence", func(a Activity) string { return string(a.DataConfidence) }},
}

func trackedChanges(before, after Activity) []fieldChange {
	var changes []fieldChange
	for _, f := range trackedFields {
		oldValue, newValue := f.value(before), f.value(after)
		if oldValue != newValue {
			changes = append(changes, fieldChange{field: f.name, old: oldValue, new: newValue})
		}
	}
	return changes
}

func auditEntry(activityID int64, action AuditAction, field, oldValue, newValue, actor string, at time.Time) AuditEntry {
	return AuditEntry{
		ActivityID: activityID,
		Action:     action,
		Field:      optional(field),
		OldValue:   optional(oldValue),
		NewValue:   optional(newValue),
		Actor:      actor,
		ChangedAt:  at,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
