package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	statics "github.com/goliatone/go-statics"
)

// Viper reads the schema from a viper instance. Viper lowercases keys, so
// static keys should be written in lower case when this provider is used.
//
// Until Watch is called Load decodes the live configuration, and the caller
// must not write to v concurrently. After Watch, Load serves the schema decoded
// by the watcher on every file change and never touches v.
type Viper struct {
	v        *viper.Viper
	key      string
	logger   *slog.Logger
	onReload func(fsnotify.Event, error)

	mu       sync.RWMutex
	watching bool
	current  statics.Schema
}

// ViperOption configures a Viper provider.
type ViperOption func(*Viper)

// WithKey overrides DocumentKey.
func WithKey(key string) ViperOption {
	return func(p *Viper) {
		if key != "" {
			p.key = key
		}
	}
}

// WithLogger sets the logger used to report reloads.
func WithLogger(logger *slog.Logger) ViperOption {
	return func(p *Viper) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReloadHook registers fn to run after each config file change with the
// decode error, nil when the new schema was adopted.
func WithReloadHook(fn func(fsnotify.Event, error)) ViperOption {
	return func(p *Viper) {
		p.onReload = fn
	}
}

// NewViper returns a provider reading from v.
func NewViper(v *viper.Viper, opts ...ViperOption) *Viper {
	p := &Viper{
		v:      v,
		key:    DocumentKey,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Load implements statics.SchemaProvider.
func (p *Viper) Load(ctx context.Context) (statics.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	watching, current := p.watching, p.current
	p.mu.RUnlock()
	if watching {
		return copySchema(current), nil
	}
	return p.decode()
}

// Watch decodes the current schema and enables viper's file watching. A
// change that decodes replaces the served schema; one that does not is logged
// at error level and the previous schema stays in effect.
func (p *Viper) Watch() error {
	schema, err := p.decode()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.current, p.watching = schema, true
	p.mu.Unlock()

	p.v.OnConfigChange(p.reload)
	p.v.WatchConfig()
	return nil
}

// reload runs on viper's watcher goroutine right after it re-read the file.
func (p *Viper) reload(event fsnotify.Event) {
	schema, err := p.decode()
	if err != nil {
		p.logger.Error("statics schema reload failed", "file", event.Name, "op", event.Op.String(), "error", err)
	} else {
		p.mu.Lock()
		p.current = schema
		p.mu.Unlock()
		p.logger.Info("statics schema reloaded", "file", event.Name, "op", event.Op.String(), "keys", len(schema))
	}
	if p.onReload != nil {
		p.onReload(event, err)
	}
}

func (p *Viper) decode() (statics.Schema, error) {
	raw := p.v.Get(p.key)
	if raw == nil {
		return statics.Schema{}, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: `%s` must be a mapping, got %T", p.key, raw)
	}
	return Decode(fields)
}
