package actor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an address has no live actor.
	ErrNotFound = errors.New("actor not found")
	// ErrStopped is returned for calls that reach an actor after it stopped.
	ErrStopped = errors.New("actor stopped")
	// ErrExists is returned when spawning on an address already in use.
	ErrExists = errors.New("actor already exists")
)

// Address is the location-transparent identity of an actor.
type Address string

// NewAddress returns a fresh random address with the given kind prefix.
func NewAddress(kind string) Address {
	return Address(kind + "/" + uuid.NewString())
}

func (a Address) String() string { return string(a) }

// Receiver handles the messages of one actor. Receive is never called
// concurrently for the same actor.
type Receiver interface {
	Receive(ctx context.Context, msg any) (any, error)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, msg any) (any, error)

func (f ReceiverFunc) Receive(ctx context.Context, msg any) (any, error) { return f(ctx, msg) }

// Ref is a handle to a live actor.
type Ref struct {
	proc *process
}

// Address returns the address of the actor.
func (r *Ref) Address() Address { return r.proc.addr }

// Call delivers msg and waits for the handler's reply. The context is only
// honored until the message is enqueued; a delivered message always runs to
// completion.
func (r *Ref) Call(ctx context.Context, msg any) (any, error) {
	return r.proc.call(ctx, msg)
}

type envelope struct {
	ctx   context.Context
	msg   any
	reply chan reply
}

type reply struct {
	value any
	err   error
}

type process struct {
	addr    Address
	recv    Receiver
	mailbox chan envelope

	done     chan struct{} // closed by stop
	stopped  chan struct{} // closed when the loop exits
	stopOnce sync.Once
}

func newProcess(addr Address, recv Receiver, mailboxSize int) *process {
	return &process{
		addr:    addr,
		recv:    recv,
		mailbox: make(chan envelope, mailboxSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (p *process) start() {
	go p.loop()
}

func (p *process) loop() {
	defer close(p.stopped)
	for {
		select {
		case <-p.done:
			p.drain()
			return
		case env := <-p.mailbox:
			value, err := p.invoke(env.ctx, env.msg)
			env.reply <- reply{value: value, err: err}
		}
	}
}

// drain rejects messages that were queued behind the stop.
func (p *process) drain() {
	for {
		select {
		case env := <-p.mailbox:
			env.reply <- reply{err: fmt.Errorf("%w: %s", ErrStopped, p.addr)}
		default:
			return
		}
	}
}

func (p *process) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// invoke runs the handler with this actor pushed on the call chain.
func (p *process) invoke(ctx context.Context, msg any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor %s panicked handling %T: %v\n%s", p.addr, msg, r, debug.Stack())
		}
	}()
	return p.recv.Receive(withChain(ctx, p.addr), msg)
}

func (p *process) call(ctx context.Context, msg any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if onChain(ctx, p.addr) {
		return p.invoke(ctx, msg)
	}

	select {
	case <-p.done:
		return nil, fmt.Errorf("%w: %s", ErrStopped, p.addr)
	default:
	}

	ch := make(chan reply, 1)
	select {
	case p.mailbox <- envelope{ctx: context.WithoutCancel(ctx), msg: msg, reply: ch}:
	case <-p.done:
		return nil, fmt.Errorf("%w: %s", ErrStopped, p.addr)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-p.stopped:
		// The loop may have replied right before exiting.
		select {
		case r := <-ch:
			return r.value, r.err
		default:
			return nil, fmt.Errorf("%w: %s", ErrStopped, p.addr)
		}
	}
}
