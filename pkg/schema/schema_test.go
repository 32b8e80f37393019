package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	statics "github.com/goliatone/go-statics"
)

func intPtr(n int) *int { return &n }

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    statics.Schema
		wantErr string
	}{
		{
			name: "full spec",
			raw: map[string]any{
				"title": map[string]any{
					"type":       "string",
					"label":      "Title",
					"required":   true,
					"min_length": 1,
					"max_length": "80",
					"rule":       `len(value) > 0`,
					"engine":     "expr",
				},
			},
			want: statics.Schema{
				"title": {
					Type:      statics.FieldTypeString,
					Label:     "Title",
					Required:  true,
					MinLength: intPtr(1),
					MaxLength: intPtr(80),
					Rule:      `len(value) > 0`,
					Engine:    "expr",
				},
			},
		},
		{
			name: "weak booleans and enum",
			raw: map[string]any{
				"theme": map[string]any{"required": "true", "nullable": 1, "enum": []any{"light", "dark"}},
			},
			want: statics.Schema{
				"theme": {Required: true, Nullable: true, Enum: []any{"light", "dark"}},
			},
		},
		{
			name: "string shorthand and null",
			raw:  map[string]any{"contact": "string", "extra": nil},
			want: statics.Schema{"contact": {Type: statics.FieldTypeString}, "extra": {}},
		},
		{
			name:    "unknown field",
			raw:     map[string]any{"title": map[string]any{"typo": "string"}},
			wantErr: `key "title"`,
		},
		{
			name:    "not a mapping",
			raw:     map[string]any{"title": []any{"string"}},
			wantErr: `key "title"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected schema (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStaticReturnsCopies(t *testing.T) {
	provider := NewStatic(statics.Schema{"title": {Type: statics.FieldTypeString}})
	first, err := provider.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	first["injected"] = statics.FieldSpec{}

	second, err := provider.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := second["injected"]; ok {
		t.Fatalf("static provider leaked caller mutation")
	}
}

func TestStaticHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStatic(nil).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestFileReloadsOnEveryLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schema.yaml", "statics:\n  title: string\n")
	provider := NewFile(path)

	got, err := provider.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(statics.Schema{"title": {Type: statics.FieldTypeString}}, got); diff != "" {
		t.Fatalf("unexpected schema (-want +got):\n%s", diff)
	}

	writeFile(t, dir, "schema.yaml", "statics:\n  title: string\n  contact:\n    type: string\n    required: true\n")
	got, err = provider.Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got) != 2 || !got["contact"].Required {
		t.Fatalf("expected reloaded schema, got %+v", got)
	}
}

func TestFileAcceptsJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "schema.json", `{"statics":{"title":{"type":"string","max_length":10}}}`)
	got, err := NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got["title"].MaxLength == nil || *got["title"].MaxLength != 10 {
		t.Fatalf("unexpected schema %+v", got)
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		want error
		msg  string
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.yaml"), want: os.ErrNotExist},
		{name: "missing key", path: writeFile(t, dir, "other.yaml", "site:\n  title: x\n"), want: ErrMissingDocumentKey},
		{name: "wrong shape", path: writeFile(t, dir, "list.yaml", "statics:\n  - title\n"), msg: "must be a mapping"},
		{name: "bad yaml", path: writeFile(t, dir, "bad.yaml", "statics: [\n"), msg: "bad.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFile(tt.path).Load(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("expected message containing %q, got %v", tt.msg, err)
			}
		})
	}
}

func TestParseEmptyMapping(t *testing.T) {
	got, err := Parse([]byte("statics:\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty schema, got %v", got)
	}
}

func TestViperLoadsLatestState(t *testing.T) {
	v := viper.New()
	provider := NewViper(v)

	got, err := provider.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty schema when key unset, got %v", got)
	}

	v.Set("statics", map[string]any{"title": map[string]any{"type": "string"}})
	got, err = provider.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got["title"].Type != statics.FieldTypeString {
		t.Fatalf("unexpected schema %+v", got)
	}

	v.Set("statics", "oops")
	if _, err := provider.Load(context.Background()); err == nil {
		t.Fatalf("expected shape error")
	}
}

func TestViperReadsConfigFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "staticsd.yaml", "listen: :8080\nsite:\n  statics:\n    title:\n      type: string\n      required: true\n")
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}
	got, err := NewViper(v, WithKey("site.statics")).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got["title"].Required {
		t.Fatalf("unexpected schema %+v", got)
	}
}

// replaceFile swaps path's content in one rename so a watcher never reads a
// half written file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename %s: %v", tmp, err)
	}
}

func TestViperWatchServesReloadedSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staticsd.yaml")
	replaceFile(t, path, "statics:\n  title: string\n")

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}
	reloads := make(chan error, 64)
	provider := NewViper(v, WithReloadHook(func(_ fsnotify.Event, err error) {
		select {
		case reloads <- err:
		default:
		}
	}))
	if err := provider.Watch(); err != nil {
		t.Fatalf("watch: %v", err)
	}
	got, err := provider.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"title"}, got.Keys()); diff != "" {
		t.Fatalf("initial keys mismatch (-want +got):\n%s", diff)
	}

	// readers keep loading while the watcher swaps the file underneath.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := provider.Load(ctx); err != nil {
				t.Errorf("concurrent load: %v", err)
				return
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for i := 0; i < 10; i++ {
		replaceFile(t, path, "statics:\n  title: string\n")
	}
	replaceFile(t, path, "statics:\n  title: string\n  footer: string\n")
	deadline := time.After(5 * time.Second)
	for {
		got, err = provider.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if _, ok := got["footer"]; ok {
			break
		}
		select {
		case <-reloads:
		case <-deadline:
			t.Fatalf("reloaded schema not served, got keys %v", got.Keys())
		}
	}

	replaceFile(t, path, "statics: oops\n")
	for failed := false; !failed; {
		select {
		case err := <-reloads:
			failed = err != nil
		case <-deadline:
			t.Fatalf("expected a failed reload to be reported")
		}
	}
	got, err = provider.Load(ctx)
	if err != nil {
		t.Fatalf("load after failed reload: %v", err)
	}
	if diff := cmp.Diff([]string{"footer", "title"}, got.Keys()); diff != "" {
		t.Fatalf("previous schema must stay in effect (-want +got):\n%s", diff)
	}
}

func TestViperWatchRejectsInvalidSchema(t *testing.T) {
	path := writeFile(t, t.TempDir(), "staticsd.yaml", "statics: oops\n")
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}
	if err := NewViper(v).Watch(); err == nil {
		t.Fatalf("expected watch to fail on an invalid schema")
	}
}
