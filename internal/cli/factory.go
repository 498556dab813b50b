package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/recalc"
	"github.com/aretw0/recalc/internal/config"
	"github.com/aretw0/recalc/pkg/adapters/bolt"
	"github.com/aretw0/recalc/pkg/adapters/file"
	loamAdapter "github.com/aretw0/recalc/pkg/adapters/loam"
	"github.com/aretw0/recalc/pkg/adapters/memory"
	"github.com/aretw0/recalc/pkg/adapters/mqtt"
	"github.com/aretw0/recalc/pkg/adapters/redis"
	"github.com/aretw0/recalc/pkg/adapters/sqlite"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/evaluator/hcl"
	"github.com/aretw0/recalc/pkg/evaluator/js"
	"github.com/aretw0/recalc/pkg/observability"
	"github.com/aretw0/recalc/pkg/persistence/middleware"
	"github.com/aretw0/recalc/pkg/ports"
)

var evaluators = map[string]func(cfg config.Config) ports.Evaluator{
	hcl.Name: func(config.Config) ports.Evaluator { return hcl.New() },
	js.Name:  func(cfg config.Config) ports.Evaluator { return js.New(js.WithTimeout(cfg.EvalTimeout)) },
}

// Evaluators lists the registered expression languages.
func Evaluators() []string {
	names := make([]string, 0, len(evaluators))
	for name := range evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEvaluator returns the evaluator registered under cfg.Evaluator.
func NewEvaluator(cfg config.Config) (ports.Evaluator, error) {
	build, ok := evaluators[strings.ToLower(strings.TrimSpace(cfg.Evaluator))]
	if !ok {
		return nil, fmt.Errorf("unknown evaluator %q (available: %s)", cfg.Evaluator, strings.Join(Evaluators(), ", "))
	}
	return build(cfg), nil
}

// NewLoader opens the workbook source named by cfg.Loader.
func NewLoader(cfg config.Config) (ports.WorkbookLoader, error) {
	switch strings.ToLower(cfg.Loader) {
	case config.LoaderLoam:
		return loamAdapter.Open(cfg.Workbooks)
	case config.LoaderFile, "":
		return file.NewLoader(cfg.Workbooks), nil
	}
	return nil, fmt.Errorf("unknown loader %q", cfg.Loader)
}

// Stack is a composed engine with everything it owns.
type Stack struct {
	Engine  *recalc.Engine
	Metrics *observability.Metrics
	Store   ports.ResultStore

	closers []func() error
}

// Close shuts the engine down and releases the backends.
func (s *Stack) Close(ctx context.Context) error {
	var errs []error
	if s.Engine != nil {
		errs = append(errs, s.Engine.Shutdown(ctx))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func (s *Stack) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// NewStore opens the result store selected by cfg and wraps it with the
// configured redaction and encryption middleware. The locker is non-nil
// only for Redis with locking enabled.
func NewStore(cfg config.Config, stack *Stack) (ports.ResultStore, ports.DistributedLocker, error) {
	var (
		store  ports.ResultStore
		locker ports.DistributedLocker
	)
	switch strings.ToLower(cfg.Store) {
	case config.StoreMemory, "":
		store = memory.NewStore()
	case config.StoreFile:
		store = file.NewStore(cfg.StorePath)
	case config.StoreSQLite:
		s, err := sqlite.Open(storePath(cfg, "results.db"))
		if err != nil {
			return nil, nil, err
		}
		stack.onClose(s.Close)
		store = s
	case config.StoreBolt:
		s, err := bolt.Open(storePath(cfg, "results.bolt"))
		if err != nil {
			return nil, nil, err
		}
		stack.onClose(s.Close)
		store = s
	case config.StoreRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.RedisPrefix),
			redis.WithTTL(cfg.RedisTTL),
		)
		stack.onClose(s.Close)
		if cfg.RedisLock {
			locker = redis.NewLocker(s.Client(), cfg.RedisPrefix)
		}
		store = s
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		keys, err := middleware.ParseKeys(cfg.EncryptionKey, cfg.EncryptionPreviousKeys...)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption: %w", err)
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), locker, nil
}

func storePath(cfg config.Config, name string) string {
	if cfg.StorePath != "" {
		return cfg.StorePath
	}
	return filepath.Join(".recalc", name)
}

// Build composes an engine from cfg. The extra hooks run after the metrics
// and logging hooks. Callers must Close the stack.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...domain.LifecycleHooks) (*Stack, error) {
	stack := &Stack{Metrics: observability.NewMetrics()}
	fail := func(err error) (*Stack, error) {
		_ = stack.Close(ctx)
		return nil, err
	}

	loader, err := NewLoader(cfg)
	if err != nil {
		return fail(fmt.Errorf("open workbooks: %w", err))
	}
	evaluator, err := NewEvaluator(cfg)
	if err != nil {
		return fail(err)
	}
	store, locker, err := NewStore(cfg, stack)
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	stack.Store = store

	opts := []recalc.Option{
		recalc.WithLoader(loader),
		recalc.WithEvaluator(evaluator),
		recalc.WithStore(store),
		recalc.WithLogger(logger),
		recalc.WithMailboxSize(cfg.MailboxSize),
		recalc.WithLifecycleHooks(observability.Merge(append([]domain.LifecycleHooks{
			stack.Metrics.Hooks(),
			observability.LoggingHooks(logger),
		}, extra...)...)),
	}
	if locker != nil {
		opts = append(opts, recalc.WithLocker(locker))
	}
	if cfg.MQTTBroker != "" {
		sink, disconnect, err := mqtt.Dial(cfg.MQTTBroker, cfg.MQTTClientID,
			mqtt.WithTopic(cfg.MQTTTopic),
			mqtt.WithLogger(logger),
		)
		if err != nil {
			return fail(fmt.Errorf("mqtt: %w", err))
		}
		stack.onClose(func() error { disconnect(); return nil })
		opts = append(opts, recalc.WithSinks(sink))
	}

	eng, err := recalc.New(cfg.Workbooks, opts...)
	if err != nil {
		return fail(fmt.Errorf("error initializing engine: %w", err))
	}
	stack.Engine = eng
	stack.Metrics.TrackActiveSessions(func() int { return len(eng.Sessions()) })
	return stack, nil
}
