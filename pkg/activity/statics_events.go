package activity

import (
	"strings"
	"time"
)

const (
	VerbStaticCreated = "statics.created"
	VerbStaticUpdated = "statics.updated"

	ObjectTypeStatic = "static"
)

// StaticEventInput describes one persisted static override.
type StaticEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	Key            string
	RecordID       string
	Collection     string
	OldValue       any
	NewValue       any
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// BuildStaticCreatedEvent constructs the event for the first override of a key.
func BuildStaticCreatedEvent(input StaticEventInput) Event {
	return buildStaticEvent(VerbStaticCreated, input)
}

// BuildStaticUpdatedEvent constructs the event for an in-place override update.
func BuildStaticUpdatedEvent(input StaticEventInput) Event {
	return buildStaticEvent(VerbStaticUpdated, input)
}

func buildStaticEvent(verb string, input StaticEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Key != "" {
		set("key", input.Key)
	}
	if input.RecordID != "" {
		set("record_id", input.RecordID)
	}
	if input.Collection != "" {
		set("collection", input.Collection)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = strings.TrimSpace(input.RecordID)
	}
	if objectID == "" {
		objectID = ObjectTypeStatic
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeStatic,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}
