// Package cli wires configuration, adapters and workflows into a running studio
// for the studio command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/studio"
	"github.com/aretw0/studio/internal/logging"
	"github.com/aretw0/studio/pkg/adapters/dialog"
	"github.com/aretw0/studio/pkg/adapters/file"
	httpadapter "github.com/aretw0/studio/pkg/adapters/http"
	"github.com/aretw0/studio/pkg/adapters/memory"
	"github.com/aretw0/studio/pkg/adapters/process"
	redisadapter "github.com/aretw0/studio/pkg/adapters/redis"
	"github.com/aretw0/studio/pkg/config"
	"github.com/aretw0/studio/pkg/observability"
	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/aretw0/studio/pkg/persistence/middleware"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/aretw0/studio/pkg/session"
	"github.com/aretw0/studio/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionLockTTL  = 30 * time.Second
	sessionLockWait = 5 * time.Second
)

// Options configures Build.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Dialog answers the open-stage workflow. Defaults to a dialog that
	// has nothing scripted, so every request fails.
	Dialog ports.FileDialog

	// Registry receives the studio metrics. Defaults to a fresh registry.
	Registry *prometheus.Registry

	// SessionLockTTL is the expiry of the redis session lock. The lock is
	// renewed every third of it while the App is open. Defaults to 30s.
	SessionLockTTL time.Duration
}

// App is a fully wired studio with its workflows and adapters.
type App struct {
	Studio    *studio.Studio
	Config    *config.Config
	Registry  *prometheus.Registry
	Streams   *httpadapter.StreamManager
	Stage     *Stage
	Sequencer *Sequencer
	OpenStage *workflow.OpenFile
	Shots     *workflow.ShotWorkflow

	logger      *slog.Logger
	lease       *redisadapter.Lease
	stopRenewal func()
	closers     []func() error
}

// Build validates cfg and assembles the transport, snapshot store, metrics,
// registries and workflows it describes. The caller owns the returned App and
// must Close it.
func Build(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	a := &App{
		Config:    cfg,
		Registry:  reg,
		Streams:   httpadapter.NewStreamManager(),
		Sequencer: NewSequencer(),
		logger:    logging.Component(logger, "app"),
	}

	var client *goredis.Client
	if cfg.Transport.Kind == "redis" || cfg.Snapshots.Kind == "redis" {
		client = newRedisClient(cfg)
		a.closers = append(a.closers, client.Close)
	}

	var transport ports.Transport
	switch cfg.Transport.Kind {
	case "redis":
		transport = redisadapter.NewTransportFromClient(client,
			redisadapter.WithChannel(cfg.Transport.Channel),
			redisadapter.WithLogger(logger),
		)
	default:
		mem := memory.NewTransport()
		a.closers = append(a.closers, mem.Close)
		transport = mem
	}

	studioOpts := []studio.Option{
		studio.WithLogger(logger),
		studio.WithLifecycleHooks(a.Streams.Hooks()),
	}

	metrics := observability.NewMetrics(reg)
	studioOpts = append(studioOpts, studio.WithLifecycleHooks(metrics.Hooks()))

	store, locker := snapshotStore(cfg, client)
	if store != nil {
		var err error
		if store, err = secureStore(cfg, store); err != nil {
			_ = a.Close()
			return nil, err
		}
		sessOpts := []session.Option{session.WithLogger(logger)}
		if locker != nil {
			sessOpts = append(sessOpts, session.WithLocker(locker, 0))
		}
		sessions := session.NewManager(store, sessOpts...)
		studioOpts = append(studioOpts, studio.WithSnapshotStore(sessions, cfg.Snapshots.Session))
	}
	if locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, sessionLockWait)
		ttl := opts.SessionLockTTL
		if ttl <= 0 {
			ttl = sessionLockTTL
		}
		lease, err := locker.Acquire(lockCtx, cfg.Snapshots.Session, ttl)
		cancel()
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("session %q is in use: %w", cfg.Snapshots.Session, err)
		}
		a.lease = lease
		a.stopRenewal = a.renewSessionLock(lease, ttl)
	}

	a.Studio = studio.New(transport, studioOpts...)
	metrics.WatchScheduled(a.Studio.Engine().Pending)
	a.Stage = NewStage(a.Studio, logging.Component(logger, "stage"))

	if err := a.registerProviders(); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.registerStudios()
	if err := a.registerWorkflows(opts.Dialog, logger); err != nil {
		_ = a.Close()
		return nil, err
	}
	if cfg.DefaultStudio != "" {
		a.Studio.ActivateStudio(cfg.DefaultStudio)
	}
	return a, nil
}

func newRedisClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Transport.Addr,
		Password: cfg.Transport.Password,
		DB:       cfg.Transport.DB,
	})
}

// OpenStore opens the snapshot store cfg selects, without the session lock.
// The returned close function releases any connection it opened.
func OpenStore(cfg *config.Config) (ports.SnapshotStore, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.Snapshots.Kind == "" {
		return nil, nil, errors.New("no snapshot store configured")
	}
	closeFn := func() error { return nil }
	var client *goredis.Client
	if cfg.Snapshots.Kind == "redis" {
		client = newRedisClient(cfg)
		closeFn = client.Close
	}
	store, _ := snapshotStore(cfg, client)
	store, err := secureStore(cfg, store)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return session.NewManager(store), closeFn, nil
}

// secureStore wraps store with the redaction and encryption cfg asks for.
// Redaction runs first so the ciphertext never holds masked text.
func secureStore(cfg *config.Config, store ports.SnapshotStore) (ports.SnapshotStore, error) {
	var mws []middleware.Middleware
	if len(cfg.Snapshots.Redact) > 0 {
		redact, err := middleware.NewRedactMiddleware(cfg.Snapshots.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, redact)
	}
	if cfg.Snapshots.KeyEnv != "" {
		active, err := envKey(cfg.Snapshots.KeyEnv)
		if err != nil {
			return nil, err
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, name := range cfg.Snapshots.FallbackKeyEnvs {
			key, err := envKey(name)
			if err != nil {
				return nil, err
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		encrypt, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, encrypt)
	}
	return middleware.Chain(store, mws...), nil
}

func envKey(name string) ([]byte, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil, fmt.Errorf("snapshot key variable %s is not set", name)
	}
	key, err := middleware.ParseKey(value)
	if err != nil {
		return nil, fmt.Errorf("snapshot key %s: %w", name, err)
	}
	return key, nil
}

func snapshotStore(cfg *config.Config, client *goredis.Client) (ports.SnapshotStore, *redisadapter.Locker) {
	switch cfg.Snapshots.Kind {
	case "memory":
		return memory.NewStore(), nil
	case "file":
		return file.New(cfg.Snapshots.Path), nil
	case "redis":
		var opts []redisadapter.Option
		if cfg.Snapshots.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(cfg.Snapshots.TTL))
		}
		return redisadapter.NewFromClient(client, opts...), redisadapter.NewLocker(client, "studio:")
	}
	return nil, nil
}

func (a *App) registerProviders() error {
	providers, err := a.Config.ProviderConfigs()
	if err != nil {
		return err
	}
	o := a.Studio.Orchestrator()
	for _, p := range providers {
		o.RegisterProvider(p.Name, func() any { return p })
		a.logger.Debug("provider registered", "provider", p.Name, "kind", p.Kind)
	}
	return nil
}

func (a *App) registerStudios() {
	o := a.Studio.Orchestrator()
	for _, name := range a.Config.ActivityNames() {
		o.RegisterActivity(name, func() orchestrator.Activity {
			return newPanel(name, a.logger)
		})
	}
	for _, s := range a.Config.Studios {
		o.RegisterStudio(s.Name, func() orchestrator.Studio {
			return s.BasicStudio()
		})
	}
}

func (a *App) registerWorkflows(fd ports.FileDialog, logger *slog.Logger) error {
	if fd == nil {
		fd = dialog.NewScripted()
	}
	wf := a.Config.Workflows
	engine := a.Studio.Engine()

	var loader ports.FileLoader = a.Stage
	if wf.OpenStage.Command != "" {
		loader = ports.ChainLoaders(
			process.NewLoader(wf.OpenStage.Command, wf.OpenStage.Args, process.WithLogger(logger)),
			a.Stage,
		)
	}

	a.OpenStage = workflow.NewOpenFile("open_stage", wf.OpenStage.Base, fd, loader,
		workflow.WithTitle(wf.OpenStage.Title),
		workflow.WithExtensions(wf.OpenStage.Extensions...),
		workflow.WithPollInterval(wf.OpenStage.PollInterval),
		workflow.WithWorkflowLogger(logger),
		workflow.WithOnFinish(func(r workflow.Result) {
			a.logger.Info("open stage finished", "path", r.Path, "status", r.Status, "err", r.Err)
		}),
	)
	a.Shots = workflow.NewShotWorkflow("shots", wf.Shots.Base, a.Studio, a.Sequencer,
		workflow.WithShotLogger(logger),
		workflow.WithShotCreated(func(s workflow.Shot) {
			a.logger.Info("shot created", "shot", s.Name, "start", s.Start, "end", s.End)
		}),
	)

	if err := engine.RegisterModule(a.OpenStage.Module()); err != nil {
		return err
	}
	return engine.RegisterModule(a.Shots.Module())
}

// renewSessionLock keeps lease alive until the returned func is called. The
// returned func waits for the renewal goroutine to exit.
func (a *App) renewSessionLock(lease *redisadapter.Lease, ttl time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := lease.Renew(ctx, ttl)
			switch {
			case err == nil:
			case errors.Is(err, redisadapter.ErrLockLost):
				a.logger.Error("session lock lost", "session", a.Config.Snapshots.Session, "error", err)
				return
			case ctx.Err() != nil:
				return
			default:
				a.logger.Warn("session lock renewal failed", "session", a.Config.Snapshots.Session, "error", err)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Close releases the session lock and the adapters. It is safe to call twice.
func (a *App) Close() error {
	var errs []error
	if a.stopRenewal != nil {
		a.stopRenewal()
		a.stopRenewal = nil
	}
	if a.lease != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := a.lease.Release(ctx); err != nil {
			errs = append(errs, fmt.Errorf("release session lock: %w", err))
		}
		cancel()
		a.lease = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
