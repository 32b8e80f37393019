package statics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-statics/layering"
	"github.com/goliatone/go-statics/pkg/activity"
	"github.com/goliatone/go-statics/pkg/store"
)

// DefaultCollection is the store collection holding static overrides.
const DefaultCollection = "statics"

// Service reads and updates static values. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	store      store.Store
	schemas    SchemaProvider
	validators ValidatorFactory
	collection string
	logger     *slog.Logger
	emitter    *activity.Emitter
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithValidatorFactory replaces the default schema validator factory.
func WithValidatorFactory(factory ValidatorFactory) ServiceOption {
	return func(s *Service) {
		if factory != nil {
			s.validators = factory
		}
	}
}

// WithLogger sets the service logger. Library code logs nothing by default.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCollection overrides DefaultCollection.
func WithCollection(collection string) ServiceOption {
	return func(s *Service) {
		if collection != "" {
			s.collection = collection
		}
	}
}

// WithClock overrides the time source used for activity timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a Service over st and provider.
func NewService(st store.Store, provider SchemaProvider, opts ...ServiceOption) (*Service, error) {
	if st == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrSchemaRequired
	}
	s := &Service{
		store:      st,
		schemas:    provider,
		collection: DefaultCollection,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.validators == nil {
		factory, err := NewValidatorFactory()
		if err != nil {
			return nil, fmt.Errorf("statics: default validator: %w", err)
		}
		s.validators = factory
	}
	return s, nil
}

// Collection returns the store collection the service reads and writes.
func (s *Service) Collection() string {
	return s.collection
}

// MappedValues folds every stored record into a key to value mapping. When a
// key is stored more than once the last record in scan order wins.
func (s *Service) MappedValues(ctx context.Context) (Values, error) {
	records, err := s.store.Find(ctx, s.collection, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("statics: load values: %w", err)
	}
	out := make(Values, len(records))
	for _, record := range records {
		out[record.Key] = record.Value
	}
	return out, nil
}

// Get returns the effective values: every schema key mapped to its stored
// override or nil. Stored keys missing from the schema are omitted.
func (s *Service) Get(ctx context.Context) (Result, error) {
	schema, err := s.loadSchema(ctx)
	if err != nil {
		return Result{}, err
	}
	mapped, err := s.MappedValues(ctx)
	if err != nil {
		return Result{}, err
	}
	values := make(Values, len(schema))
	for key := range schema {
		values[key] = mapped[key]
	}
	return Result{Values: values}, nil
}

// Update merges the proposed values over the stored ones, validates the
// merged mapping and persists each proposed key. Nothing is written when the
// request is malformed or the merged mapping is invalid.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (Result, error) {
	proposed, err := req.proposedValues()
	if err != nil {
		return Result{}, err
	}

	current, err := s.MappedValues(ctx)
	if err != nil {
		return Result{}, err
	}
	merged := layering.Overlay(proposed, current)

	schema, err := s.loadSchema(ctx)
	if err != nil {
		return Result{}, err
	}
	validator, err := s.validators(schema)
	if err != nil {
		return Result{}, fmt.Errorf("statics: build validator: %w", err)
	}
	if err := validator.Error(merged); err != nil {
		s.logger.InfoContext(ctx, "statics update rejected", "error", err)
		return Result{}, asValidationError(err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	changes, err := s.persist(ctx, proposed)
	s.emitChanges(ctx, changes)
	if err != nil {
		return Result{}, err
	}
	s.logger.InfoContext(ctx, "statics updated", "keys", len(changes))

	result, err := s.Get(ctx)
	if err != nil {
		return Result{}, err
	}
	result.Success = true
	return result, nil
}

func (s *Service) loadSchema(ctx context.Context) (Schema, error) {
	schema, err := s.schemas.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("statics: load schema: %w", err)
	}
	return schema, nil
}

// change records the outcome of one upsert.
type change struct {
	key      string
	recordID string
	created  bool
	oldValue any
	newValue any
}

// persist upserts every proposed key concurrently. Dispatched upserts run on
// a context detached from cancellation and are always awaited; the first
// error is returned and completed writes are kept.
func (s *Service) persist(ctx context.Context, proposed Values) ([]change, error) {
	keys := make([]string, 0, len(proposed))
	for key := range proposed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	detached := context.WithoutCancel(ctx)
	results := make([]*change, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		value := proposed[key]
		g.Go(func() error {
			c, err := s.upsert(detached, key, value)
			if err != nil {
				return err
			}
			results[i] = &c
			return nil
		})
	}
	err := g.Wait()

	changes := make([]change, 0, len(results))
	for _, c := range results {
		if c != nil {
			changes = append(changes, *c)
		}
	}
	return changes, err
}

// upsert updates the record stored for key or inserts one. An insert that
// loses a race against another writer for the same key falls back to an
// update of the winning record.
func (s *Service) upsert(ctx context.Context, key string, value any) (change, error) {
	existing, found, err := s.store.FindOne(ctx, s.collection, store.Filter{Key: key})
	if err != nil {
		return change{}, fmt.Errorf("statics: find %q: %w", key, err)
	}
	if found {
		return s.overwrite(ctx, existing, value)
	}

	inserted, err := s.store.Insert(ctx, s.collection, store.Record{Key: key, Value: value})
	if errors.Is(err, store.ErrDuplicateKey) {
		existing, found, findErr := s.store.FindOne(ctx, s.collection, store.Filter{Key: key})
		if findErr != nil {
			return change{}, fmt.Errorf("statics: find %q: %w", key, findErr)
		}
		if !found {
			return change{}, fmt.Errorf("statics: insert %q: %w", key, err)
		}
		return s.overwrite(ctx, existing, value)
	}
	if err != nil {
		return change{}, fmt.Errorf("statics: insert %q: %w", key, err)
	}
	s.logger.DebugContext(ctx, "static created", "key", key, "id", inserted.ID)
	return change{key: key, recordID: inserted.ID, created: true, newValue: value}, nil
}

func (s *Service) overwrite(ctx context.Context, existing store.Record, value any) (change, error) {
	if err := s.store.Update(ctx, s.collection, existing.ID, value); err != nil {
		return change{}, fmt.Errorf("statics: update %q: %w", existing.Key, err)
	}
	s.logger.DebugContext(ctx, "static updated", "key", existing.Key, "id", existing.ID)
	return change{key: existing.Key, recordID: existing.ID, oldValue: existing.Value, newValue: value}, nil
}
