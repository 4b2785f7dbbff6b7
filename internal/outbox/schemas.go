package outbox

import "example.com/processmap/internal/events"

// Every activity event shares one subject, so its schema names the common
// envelope fields and leaves the rest open.
const activityEventsSchema = `{
  "type": "object",
  "title": "ActivityEvent",
  "properties": {
    "activity_id": {"type": "integer"},
    "workflow_id": {"type": "integer"},
    "activity_name": {"type": "string"},
    "activity_type": {"type": "string"},
    "grid_location": {"type": "string"},
    "resolution": {"type": "string"},
    "changed_fields": {"type": "array", "items": {"type": "string"}},
    "reason": {"type": "string"},
    "row": {"type": "string"},
    "from_column": {"type": "integer"},
    "relocations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "activity_id": {"type": "integer"},
          "from": {"type": "string"},
          "to": {"type": "string"}
        },
        "required": ["activity_id", "from", "to"]
      }
    },
    "relinked": {"type": "array", "items": {"type": "integer"}},
    "actor": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workflow_id", "actor", "occurred_at"]
}`

const workflowEventsSchema = `{
  "type": "object",
  "title": "WorkflowDeleted",
  "properties": {
    "workflow_id": {"type": "integer"},
    "activities_removed": {"type": "integer"},
    "swimlanes_removed": {"type": "integer"},
    "actor": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workflow_id", "activities_removed", "swimlanes_removed", "actor", "occurred_at"],
  "additionalProperties": false
}`

// schemaCatalog maps a schema subject to the JSON schema registered for it.
var schemaCatalog = map[string]string{
	events.SubjectActivityEvents: activityEventsSchema,
	events.SubjectWorkflowEvents: workflowEventsSchema,
}
