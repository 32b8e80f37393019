package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-statics/pkg/activity"
	"github.com/goliatone/go-statics/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookRecordsStaticUpdate(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()
	event := activity.BuildStaticUpdatedEvent(activity.StaticEventInput{
		ActorID:        actorID.String(),
		TenantID:       tenantID.String(),
		Key:            "companyName",
		RecordID:       "rec-1",
		Collection:     "statics",
		OldValue:       "Acme",
		NewValue:       "Acme Corp",
		Channel:        "statics",
		DefinitionCode: "statics:update",
		Recipients:     []string{"editor@acme.test"},
		OccurredAt:     now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID || record.UserID != uuid.Nil {
		t.Fatalf("unexpected identities: actor=%s tenant=%s user=%s", record.ActorID, record.TenantID, record.UserID)
	}
	if record.Verb != activity.VerbStaticUpdated || record.ObjectType != activity.ObjectTypeStatic || record.ObjectID != "companyName" {
		t.Fatalf("unexpected object: %s %s/%s", record.Verb, record.ObjectType, record.ObjectID)
	}
	if record.Channel != "statics" || !record.OccurredAt.Equal(now) {
		t.Fatalf("unexpected channel or time: %q %v", record.Channel, record.OccurredAt)
	}
	wantData := map[string]any{
		"key":             "companyName",
		"record_id":       "rec-1",
		"collection":      "statics",
		"old_value":       "Acme",
		"new_value":       "Acme Corp",
		"definition_code": "statics:update",
		"recipients":      []string{"editor@acme.test"},
	}
	if diff := cmp.Diff(wantData, record.Data); diff != "" {
		t.Fatalf("record data mismatch (-want +got):\n%s", diff)
	}
}

func TestHookRedactsValues(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, RedactValues: true}

	event := activity.BuildStaticCreatedEvent(activity.StaticEventInput{
		Key:      "apiToken",
		NewValue: "s3cr3t",
	})
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	data := sink.records[0].Data
	if data["new_value"] != usersink.RedactedValue {
		t.Fatalf("expected redacted new_value, got %v", data["new_value"])
	}
	if _, ok := data["old_value"]; ok {
		t.Fatalf("created events carry no old_value, got %v", data["old_value"])
	}
	if data["key"] != "apiToken" {
		t.Fatalf("key must survive redaction, got %v", data["key"])
	}
}

func TestHookKeepsNonUUIDActors(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	event := activity.BuildStaticUpdatedEvent(activity.StaticEventInput{
		ActorID: "editor-1",
		UserID:  "  ",
		Key:     "pageSize",
	})
	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil || record.UserID != uuid.Nil {
		t.Fatalf("expected nil uuids, got actor=%s user=%s", record.ActorID, record.UserID)
	}
	if record.Data["actor"] != "editor-1" {
		t.Fatalf("expected raw actor in data, got %v", record.Data["actor"])
	}
	if _, ok := record.Data["user"]; ok {
		t.Fatalf("blank user id must not be recorded")
	}
}

func TestHookSkipsUndeliverableEvents(t *testing.T) {
	sink := &recordingSink{}
	tests := []struct {
		name  string
		event activity.Event
	}{
		{name: "empty", event: activity.Event{}},
		{name: "no verb", event: activity.Event{ObjectType: "static", ObjectID: "pageSize"}},
		{name: "blank object id", event: activity.Event{Verb: activity.VerbStaticCreated, ObjectType: "static", ObjectID: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := (usersink.Hook{Sink: sink}).Notify(context.Background(), tt.event); err != nil {
				t.Fatalf("notify: %v", err)
			}
		})
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected no records, got %d", len(sink.records))
	}
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("nil sink must be a no-op, got %v", err)
	}
}

func TestHookStampsMissingTime(t *testing.T) {
	sink := &recordingSink{}
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	hook := usersink.Hook{Sink: sink, Now: func() time.Time { return fixed }}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbStaticCreated,
		ObjectType: activity.ObjectTypeStatic,
		ObjectID:   "theme",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !sink.records[0].OccurredAt.Equal(fixed) {
		t.Fatalf("expected %v, got %v", fixed, sink.records[0].OccurredAt)
	}
}

func TestHookReturnsSinkErrors(t *testing.T) {
	sinkErr := errors.New("feed unavailable")
	hook := usersink.Hook{Sink: &recordingSink{err: sinkErr}}
	err := hook.Notify(context.Background(), activity.BuildStaticCreatedEvent(activity.StaticEventInput{Key: "theme"}))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
}
