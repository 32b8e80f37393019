// Package usersink forwards statics activity to a go-users activity feed.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-statics/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// RedactedValue replaces old_value and new_value when RedactValues is set.
const RedactedValue = "[redacted]"

// Hook writes every deliverable statics event as a go-users ActivityRecord.
// Actor, user and tenant ids that are not UUIDs are kept in the record data
// under actor, user and tenant.
type Hook struct {
	Sink usertypes.ActivitySink
	// RedactValues keeps static values out of the activity feed.
	RedactValues bool
	// Now stamps records whose event has no time. Defaults to time.Now.
	Now func() time.Time
}

// Notify implements activity.ActivityHook.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	if event.OccurredAt.IsZero() && h.Now != nil {
		event.OccurredAt = h.Now()
	}
	event = activity.NormalizeEvent(event)
	if !event.Deliverable() {
		return nil
	}
	return h.Sink.Log(ctx, h.record(event))
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	data := make(map[string]any, len(event.Metadata)+4)
	for key, value := range event.Metadata {
		data[key] = value
	}
	if h.RedactValues {
		for _, key := range []string{"old_value", "new_value"} {
			if _, ok := data[key]; ok {
				data[key] = RedactedValue
			}
		}
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = append([]string{}, event.Recipients...)
	}

	record := usertypes.ActivityRecord{
		ActorID:    identity(data, "actor", event.ActorID),
		UserID:     identity(data, "user", event.UserID),
		TenantID:   identity(data, "tenant", event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	if len(data) > 0 {
		record.Data = data
	}
	return record
}

// identity parses raw as a UUID. Other non-empty ids are stored in data under
// name and map to uuid.Nil.
func identity(data map[string]any, name, raw string) uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		data[name] = raw
		return uuid.Nil
	}
	return id
}
