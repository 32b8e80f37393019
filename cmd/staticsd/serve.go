package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	statics "github.com/goliatone/go-statics"
	"github.com/goliatone/go-statics/pkg/activity"
	"github.com/goliatone/go-statics/pkg/httpapi"
	"github.com/goliatone/go-statics/pkg/schema"
	"github.com/goliatone/go-statics/pkg/store"
	"github.com/goliatone/go-statics/pkg/store/pebblestore"
	"github.com/goliatone/go-statics/pkg/store/redisstore"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the statics HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd.ErrOrStderr())
		},
	}
	flags := cmd.Flags()
	flags.String("listen", "", "address to listen on")
	flags.String("store-type", "", "value store: memory, pebble or redis")
	flags.String("data-dir", "", "pebble data directory")
	flags.String("redis-addr", "", "redis address")
	flags.Bool("strict-keys", false, "reject values for keys the schema does not declare")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag("listen", flags.Lookup("listen"))
	_ = a.v.BindPFlag("store.type", flags.Lookup("store-type"))
	_ = a.v.BindPFlag("store.data-dir", flags.Lookup("data-dir"))
	_ = a.v.BindPFlag("store.redis.addr", flags.Lookup("redis-addr"))
	_ = a.v.BindPFlag("validation.strict-keys", flags.Lookup("strict-keys"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	return cmd
}

func (a *app) serve(ctx context.Context, stderr io.Writer) error {
	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	provider := a.schemaProvider(cfg.Schema, logger, schema.WithReloadHook(schemaReloadCounter(reg)))
	if watched, ok := provider.(*schema.Viper); ok && a.v.ConfigFileUsed() != "" {
		if err := watched.Watch(); err != nil {
			return fmt.Errorf("initial schema load: %w", err)
		}
	}
	if _, err := provider.Load(ctx); err != nil {
		return fmt.Errorf("initial schema load: %w", err)
	}

	validators, err := statics.NewValidatorFactory(
		statics.WithStrictKeys(cfg.Validation.StrictKeys),
		statics.WithProgramCacheSize(cfg.Validation.CacheSize),
		statics.WithEvaluatorLogger(statics.SlogEvaluatorLogger(logger.With("component", "rules"))),
	)
	if err != nil {
		return err
	}

	svc, err := statics.NewService(st, provider,
		statics.WithValidatorFactory(validators),
		statics.WithCollection(cfg.Store.Collection),
		statics.WithLogger(logger.With("component", "service")),
		statics.WithActivityEmitter(activity.NewEmitter(
			activity.Hooks{activity.OnlyVerbs(logActivityHook(logger.With("component", "activity")), cfg.Activity.Verbs...)},
			activity.Config{Enabled: cfg.Activity.Enabled, Channel: cfg.Activity.Channel},
		)),
	)
	if err != nil {
		return err
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(logger.With("component", "http")),
		httpapi.WithRegistry(reg),
		httpapi.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httpapi.WithActorHeader(cfg.HTTP.ActorHeader),
	}
	if cfg.HTTP.AccessLog {
		opts = append(opts, httpapi.WithAccessLog(stderr))
	}
	api := httpapi.NewServer(svc, provider, opts...)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("statics API listening", "addr", cfg.Listen, "store", cfg.Store.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down statics API")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// schemaProvider reads schema.file when set and the statics section of the
// loaded configuration otherwise. opts apply to the latter.
func (a *app) schemaProvider(cfg SchemaConfig, logger *slog.Logger, opts ...schema.ViperOption) statics.SchemaProvider {
	if cfg.File != "" {
		return schema.NewFile(cfg.File)
	}
	opts = append([]schema.ViperOption{schema.WithLogger(logger.With("component", "schema"))}, opts...)
	return schema.NewViper(a.v, opts...)
}

// schemaReloadCounter counts config file reloads by outcome on reg.
func schemaReloadCounter(reg *prometheus.Registry) func(fsnotify.Event, error) {
	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statics",
		Name:      "schema_reloads_total",
		Help:      "Number of schema reloads triggered by config file changes, by result.",
	}, []string{"result"})
	reg.MustRegister(reloads)
	return func(_ fsnotify.Event, err error) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		reloads.WithLabelValues(result).Inc()
	}
}

func openStore(ctx context.Context, cfg StoreConfig) (store.Store, func() error, error) {
	switch cfg.Type {
	case "pebble":
		fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, nil, err
		}
		st, err := pebblestore.Open(pebblestore.Options{DataDir: cfg.DataDir, Fsync: fsync})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "redis":
		st, err := redisstore.Dial(ctx, cfg.Redis.Addr, redisstore.WithPrefix(cfg.Redis.Prefix))
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
}

// logActivityHook records activity events in the process log.
func logActivityHook(logger *slog.Logger) activity.ActivityHook {
	return activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		logger.InfoContext(ctx, "statics activity",
			"verb", event.Verb,
			"key", event.ObjectID,
			"actor", event.ActorID,
			"channel", event.Channel,
		)
		return nil
	})
}
