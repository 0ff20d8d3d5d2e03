package shutdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/westshgit/apidoc/logging"
)

// Trigger identifies which wait source ended a Wait.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerInterrupt
	TriggerTerminate
	TriggerCanceled
)

func (t Trigger) String() string {
	switch t {
	case TriggerInterrupt:
		return "interrupt"
	case TriggerTerminate:
		return "terminate"
	case TriggerCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// InterruptNotice is written to the operator stream when an interrupt ends
// the wait.
const InterruptNotice = "interrupt received"

// Source is one wait source. It fires when a value arrives on its channel;
// a Source with a nil channel never fires.
type Source struct {
	name string
	c    <-chan os.Signal
	stop func()
}

// Name returns the source name.
func (s Source) Name() string {
	return s.name
}

// Stop releases the source's registration. It is safe to call more than once.
func (s Source) Stop() {
	if s.stop != nil {
		s.stop()
	}
}

// Never returns a source that never fires.
func Never() Source {
	return Source{name: "never"}
}

// ChannelSource wraps an existing channel, e.g. to fire a Waiter in tests.
func ChannelSource(name string, c <-chan os.Signal) Source {
	return Source{name: name, c: c}
}

// InterruptSource registers for the interactive interrupt (Ctrl+C).
func InterruptSource() Source {
	return NotifySource("interrupt", os.Interrupt)
}

// NotifySource registers for the given OS signals.
func NotifySource(name string, sig ...os.Signal) Source {
	c := make(chan os.Signal, 1)
	signal.Notify(c, sig...)
	var once sync.Once
	return Source{
		name: name,
		c:    c,
		stop: func() { once.Do(func() { signal.Stop(c) }) },
	}
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithInterrupt replaces the interrupt source.
func WithInterrupt(s Source) Option {
	return func(w *Waiter) {
		w.interrupt = &s
	}
}

// WithTerminate replaces the termination source.
func WithTerminate(s Source) Option {
	return func(w *Waiter) {
		w.terminate = &s
	}
}

// WithNotice sets the operator stream (default: stderr).
func WithNotice(out io.Writer) Option {
	return func(w *Waiter) {
		w.notice = out
	}
}

// WithLogger logs the trigger when the wait ends.
func WithLogger(l *logging.Logger) Option {
	return func(w *Waiter) {
		w.logger = l
	}
}

// Waiter races an interrupt source against a termination source and returns
// on the first one to fire. It is one-shot: once a Wait has returned, every
// later Wait returns the same Trigger immediately.
type Waiter struct {
	interrupt *Source
	terminate *Source
	notice    io.Writer
	logger    *logging.Logger

	once    sync.Once
	done    chan struct{}
	trigger Trigger
}

// NewWaiter registers both wait sources. Signals that arrive after
// NewWaiter returns are not lost, even if Wait is called later.
// The termination source defaults to SIGTERM where the platform has it and
// to Never elsewhere.
func NewWaiter(opts ...Option) *Waiter {
	w := &Waiter{
		notice: os.Stderr,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.interrupt == nil {
		s := InterruptSource()
		w.interrupt = &s
	}
	if w.terminate == nil {
		s := TerminateSource()
		w.terminate = &s
	}
	return w
}

// Wait blocks until one of the sources fires or ctx is done. Concurrent
// callers all return the first result; only the first caller's ctx is
// watched.
func (w *Waiter) Wait(ctx context.Context) Trigger {
	w.once.Do(func() {
		w.trigger = w.wait(ctx)
		close(w.done)
	})
	<-w.done
	return w.trigger
}

// Await is Wait without a result, for callers that only need to block.
func (w *Waiter) Await(ctx context.Context) {
	w.Wait(ctx)
}

// Done is closed once a Wait has returned.
func (w *Waiter) Done() <-chan struct{} {
	return w.done
}

// Trigger returns the result of the first Wait, or TriggerNone before then.
func (w *Waiter) Trigger() Trigger {
	select {
	case <-w.done:
		return w.trigger
	default:
		return TriggerNone
	}
}

func (w *Waiter) wait(ctx context.Context) Trigger {
	defer w.interrupt.Stop()
	defer w.terminate.Stop()

	var t Trigger
	select {
	case <-w.interrupt.c:
		fmt.Fprintln(w.notice, InterruptNotice)
		t = TriggerInterrupt
	case <-w.terminate.c:
		t = TriggerTerminate
	case <-ctx.Done():
		t = TriggerCanceled
	}

	if w.logger != nil {
		w.logger.ShutdownSignal(t.String())
	}
	return t
}

// AwaitShutdown blocks until SIGINT or, where supported, SIGTERM arrives.
// On SIGINT it writes "interrupt received" to stderr before returning.
func AwaitShutdown(ctx context.Context) Trigger {
	return NewWaiter().Wait(ctx)
}
