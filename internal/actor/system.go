package actor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/recalc/internal/logging"
)

// DefaultMailboxSize is the mailbox capacity of spawned actors.
const DefaultMailboxSize = 64

// Directory resolves addresses to live actors.
type Directory interface {
	Resolve(addr Address) (*Ref, error)
}

// System is an in-memory Directory that owns the actors spawned on it.
type System struct {
	mu    sync.RWMutex
	procs map[Address]*process

	mailboxSize int
	logger      *slog.Logger
}

// Option configures a System.
type Option func(*System)

// WithMailboxSize sets the mailbox capacity of every actor spawned afterwards.
func WithMailboxSize(n int) Option {
	return func(s *System) {
		if n > 0 {
			s.mailboxSize = n
		}
	}
}

// WithLogger configures a logger for runtime events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// NewSystem creates an empty actor system.
func NewSystem(opts ...Option) *System {
	s := &System{
		procs:       make(map[Address]*process),
		mailboxSize: DefaultMailboxSize,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts an actor on addr.
func (s *System) Spawn(addr Address, recv Receiver) (*Ref, error) {
	if addr == "" {
		return nil, fmt.Errorf("spawn: empty address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.procs[addr]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, addr)
	}
	p := newProcess(addr, recv, s.mailboxSize)
	s.procs[addr] = p
	p.start()
	s.logger.Debug("actor spawned", "actor", addr)
	return &Ref{proc: p}, nil
}

// Resolve implements Directory.
func (s *System) Resolve(addr Address) (*Ref, error) {
	s.mu.RLock()
	p, ok := s.procs[addr]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return &Ref{proc: p}, nil
}

// Call resolves addr and delivers msg to it.
func (s *System) Call(ctx context.Context, addr Address, msg any) (any, error) {
	ref, err := s.Resolve(addr)
	if err != nil {
		return nil, err
	}
	return ref.Call(ctx, msg)
}

// Stop removes the actor from the directory and ends its loop after the
// message in progress. It does not wait, so an actor may stop itself.
func (s *System) Stop(addr Address) error {
	s.mu.Lock()
	p, ok := s.procs[addr]
	delete(s.procs, addr)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	p.stop()
	s.logger.Debug("actor stopped", "actor", addr)
	return nil
}

// Len returns the number of live actors.
func (s *System) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.procs)
}

// Shutdown stops every actor and waits for their loops to exit or ctx to end.
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	procs := make([]*process, 0, len(s.procs))
	for addr, p := range s.procs {
		procs = append(procs, p)
		delete(s.procs, addr)
	}
	s.mu.Unlock()

	for _, p := range procs {
		p.stop()
	}
	for _, p := range procs {
		select {
		case <-p.stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
