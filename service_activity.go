package statics

import (
	"context"
	"strings"

	"github.com/goliatone/go-statics/pkg/activity"
)

// WithActivityEmitter publishes one event per persisted key through emitter.
func WithActivityEmitter(emitter *activity.Emitter) ServiceOption {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithActivityHooks is shorthand for an enabled emitter over hooks using the
// default channel. Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) ServiceOption {
	return WithActivityEmitter(activity.NewEmitter(hooks, activity.Config{Enabled: true}))
}

type actorKey struct{}

// ContextWithActor attaches the id of the caller performing an update. The id
// is copied into activity events as ActorID.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actorID))
}

// ActorFromContext returns the actor set by ContextWithActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

func (s *Service) emitChanges(ctx context.Context, changes []change) {
	if !s.emitter.Enabled() || len(changes) == 0 {
		return
	}
	actor := ActorFromContext(ctx)
	at := s.now()
	for _, c := range changes {
		input := activity.StaticEventInput{
			ActorID:    actor,
			Key:        c.key,
			RecordID:   c.recordID,
			Collection: s.collection,
			OldValue:   c.oldValue,
			NewValue:   c.newValue,
			OccurredAt: at,
		}
		event := activity.BuildStaticUpdatedEvent(input)
		if c.created {
			event = activity.BuildStaticCreatedEvent(input)
		}
		if err := s.emitter.Emit(context.WithoutCancel(ctx), event); err != nil {
			s.logger.WarnContext(ctx, "statics activity emit failed", "key", c.key, "verb", event.Verb, "error", err)
		}
	}
}
