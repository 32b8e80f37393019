package activity

import (
	"testing"
	"time"
)

func TestBuildStaticEvents(t *testing.T) {
	at := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name       string
		build      func(StaticEventInput) Event
		input      StaticEventInput
		wantVerb   string
		wantObject string
		wantMeta   map[string]any
	}{
		{
			name:  "created",
			build: BuildStaticCreatedEvent,
			input: StaticEventInput{
				Key:        "company_name",
				RecordID:   "r1",
				Collection: "statics",
				NewValue:   "Acme",
				OccurredAt: at,
			},
			wantVerb:   VerbStaticCreated,
			wantObject: "company_name",
			wantMeta: map[string]any{
				"key":        "company_name",
				"record_id":  "r1",
				"collection": "statics",
				"new_value":  "Acme",
			},
		},
		{
			name:  "updated keeps old value",
			build: BuildStaticUpdatedEvent,
			input: StaticEventInput{
				Key:      " tagline ",
				RecordID: "r2",
				OldValue: "old",
				NewValue: "new",
				Metadata: map[string]any{"source": "http"},
			},
			wantVerb:   VerbStaticUpdated,
			wantObject: "tagline",
			wantMeta: map[string]any{
				"key":       " tagline ",
				"record_id": "r2",
				"old_value": "old",
				"new_value": "new",
				"source":    "http",
			},
		},
		{
			name:       "falls back to record id",
			build:      BuildStaticUpdatedEvent,
			input:      StaticEventInput{RecordID: "r3"},
			wantVerb:   VerbStaticUpdated,
			wantObject: "r3",
			wantMeta:   map[string]any{"record_id": "r3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build(tt.input)
			if got.Verb != tt.wantVerb {
				t.Fatalf("verb = %q, want %q", got.Verb, tt.wantVerb)
			}
			if got.ObjectType != ObjectTypeStatic || got.ObjectID != tt.wantObject {
				t.Fatalf("object = %s/%s, want %s/%s", got.ObjectType, got.ObjectID, ObjectTypeStatic, tt.wantObject)
			}
			if len(got.Metadata) != len(tt.wantMeta) {
				t.Fatalf("metadata = %v, want %v", got.Metadata, tt.wantMeta)
			}
			for key, want := range tt.wantMeta {
				if got.Metadata[key] != want {
					t.Fatalf("metadata[%s] = %v, want %v", key, got.Metadata[key], want)
				}
			}
			if !got.OccurredAt.Equal(tt.input.OccurredAt) {
				t.Fatalf("occurred_at = %v, want %v", got.OccurredAt, tt.input.OccurredAt)
			}
		})
	}
}

func TestBuildStaticEventDoesNotAliasInput(t *testing.T) {
	meta := map[string]any{"source": "cli"}
	recipients := []string{"ops@example.com"}

	event := BuildStaticCreatedEvent(StaticEventInput{Key: "k", Metadata: meta, Recipients: recipients})
	event.Metadata["source"] = "changed"
	event.Recipients[0] = "changed"

	if meta["source"] != "cli" {
		t.Fatalf("input metadata mutated: %v", meta)
	}
	if recipients[0] != "ops@example.com" {
		t.Fatalf("input recipients mutated: %v", recipients)
	}
}

func TestNilEmitterIsDisabled(t *testing.T) {
	var emitter *Emitter
	if emitter.Enabled() {
		t.Fatal("nil emitter should be disabled")
	}
	if err := emitter.Emit(nil, BuildStaticCreatedEvent(StaticEventInput{Key: "k"})); err != nil {
		t.Fatalf("emit on nil emitter: %v", err)
	}
}
