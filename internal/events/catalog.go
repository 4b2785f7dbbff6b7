package events

import "fmt"

// Route describes where an event type is published.
type Route struct {
	Topic         string
	SchemaSubject string
	AggregateType string
}

// Topics and their Schema Registry subjects.
const (
	TopicActivityEvents   = "activity_events"
	TopicWorkflowEvents   = "workflow_events"
	SubjectActivityEvents = TopicActivityEvents + "-value"
	SubjectWorkflowEvents = TopicWorkflowEvents + "-value"
)

var catalog = map[string]Route{
	TypeActivityCreated: {Topic: TopicActivityEvents, SchemaSubject: SubjectActivityEvents, AggregateType: "activity"},
	TypeActivityUpdated: {Topic: TopicActivityEvents, SchemaSubject: SubjectActivityEvents, AggregateType: "activity"},
	TypeActivityDeleted: {Topic: TopicActivityEvents, SchemaSubject: SubjectActivityEvents, AggregateType: "activity"},
	TypeActivityShifted: {Topic: TopicActivityEvents, SchemaSubject: SubjectActivityEvents, AggregateType: "workflow"},
	TypeWorkflowDeleted: {Topic: TopicWorkflowEvents, SchemaSubject: SubjectWorkflowEvents, AggregateType: "workflow"},
}

// Topics lists every topic events are published to.
func Topics() []string {
	return []string{TopicActivityEvents, TopicWorkflowEvents}
}

// Lookup returns the route for eventType.
func Lookup(eventType string) (Route, error) {
	route, ok := catalog[eventType]
	if !ok {
		return Route{}, fmt.Errorf("unknown event type: %s", eventType)
	}
	return route, nil
}

// PartitionKey keys every event by workflow so consumers see one workflow's
// changes in order.
func PartitionKey(workflowID int64) string {
	return fmt.Sprintf("workflow:%d", workflowID)
}

// DedupeKey identifies one emission of an event for an aggregate.
func DedupeKey(eventType string, aggregateID int64, eventID string) string {
	return fmt.Sprintf("%s:%d:%s", eventType, aggregateID, eventID)
}
