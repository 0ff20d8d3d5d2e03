package shutdown

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/westshgit/apidoc/logging"
)

func TestShutdownSingleHandler(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	called := false
	coord.RegisterFunc("server", func(ctx context.Context) error {
		called = true
		return nil
	})

	if err := coord.ShutdownWithTimeout(5 * time.Second); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be called")
	}

	select {
	case <-coord.Done():
	default:
		t.Fatal("expected Done channel to be closed")
	}

	result := coord.Result()
	if result == nil {
		t.Fatal("expected Result to be non-nil")
	}
	if result.Trigger != TriggerNone {
		t.Fatalf("expected TriggerNone for a direct Shutdown, got %v", result.Trigger)
	}
	if len(result.Results) != 1 || result.Results[0].Name != "server" {
		t.Fatalf("unexpected results: %+v", result.Results)
	}
	if result.Failed() {
		t.Fatal("expected result.Failed() to be false")
	}
}

func TestShutdownPhaseOrder(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	coord.RegisterFuncWithPhase("telemetry", record("telemetry"), PhaseBackend)
	coord.RegisterFuncWithPhase("http", record("http"), PhaseFrontend)
	coord.RegisterFuncWithPhase("bench", record("bench"), PhaseServices)

	if err := coord.ShutdownWithTimeout(5 * time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"http", "bench", "telemetry"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("expected order %v, got %v", want, order)
	}
}

func TestShutdownSamePhaseRunsConcurrently(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var running, peak int32
	handler := func(ctx context.Context) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}
	for _, name := range []string{"a", "b", "c"} {
		coord.RegisterFuncWithPhase(name, handler, PhaseFrontend)
	}

	start := time.Now()
	if err := coord.ShutdownWithTimeout(5 * time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&peak) != 3 {
		t.Fatalf("expected 3 concurrent handlers, peak was %d", peak)
	}
	if elapsed := time.Since(start); elapsed > 140*time.Millisecond {
		t.Fatalf("handlers appear to have run sequentially: %v", elapsed)
	}
}

func TestShutdownTimeout(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	coord.RegisterFuncWithPhase("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, PhaseFrontend)
	coord.RegisterFuncWithPhase("never-reached", func(ctx context.Context) error {
		t.Error("later phase should not run after the deadline")
		return nil
	}, PhaseBackend)

	err := coord.ShutdownWithTimeout(30 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if coord.Err() != err {
		t.Fatalf("expected Err() to match, got %v", coord.Err())
	}
}

func TestShutdownContinueOnError(t *testing.T) {
	tests := []struct {
		name      string
		keepGoing bool
		wantLater bool
	}{
		{"continue", true, true},
		{"stop", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ContinueOnError = tt.keepGoing
			coord := NewCoordinator(cfg)

			laterRan := false
			coord.RegisterFuncWithPhase("http", func(context.Context) error {
				return errors.New("listener already closed")
			}, PhaseFrontend)
			coord.RegisterFuncWithPhase("telemetry", func(context.Context) error {
				laterRan = true
				return nil
			}, PhaseBackend)

			err := coord.ShutdownWithTimeout(time.Second)
			if !errors.Is(err, ErrHandlerFailed) {
				t.Fatalf("expected ErrHandlerFailed, got %v", err)
			}
			if laterRan != tt.wantLater {
				t.Fatalf("later phase ran = %v, want %v", laterRan, tt.wantLater)
			}
			if failed := coord.Result().FailedHandlers(); len(failed) != 1 || failed[0] != "http" {
				t.Fatalf("expected [http] to fail, got %v", failed)
			}
		})
	}
}

func TestShutdownTwice(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	var calls int32
	coord.RegisterFunc("once", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})

	first := coord.ShutdownWithTimeout(time.Second)
	second := coord.ShutdownWithTimeout(time.Second)

	if !errors.Is(first, ErrHandlerFailed) || first != second {
		t.Fatalf("expected both calls to return ErrHandlerFailed, got %v and %v", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestShutdownWhileInProgress(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())

	entered := make(chan struct{})
	release := make(chan struct{})
	coord.RegisterFunc("blocking", func(context.Context) error {
		close(entered)
		<-release
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- coord.ShutdownWithTimeout(5 * time.Second)
	}()
	<-entered

	if err := coord.Shutdown(context.Background()); !errors.Is(err, ErrAlreadyShutdown) {
		t.Fatalf("expected ErrAlreadyShutdown, got %v", err)
	}
	if coord.Result() != nil {
		t.Fatal("expected nil Result while shutdown is in progress")
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShutdownProgressAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(&buf)

	var mu sync.Mutex
	var seen []string
	cfg := DefaultConfig()
	cfg.Logger = logger
	cfg.OnProgress = func(hr HandlerResult) {
		mu.Lock()
		seen = append(seen, hr.Name)
		mu.Unlock()
	}
	coord := NewCoordinator(cfg)

	coord.RegisterFuncWithPhase("http", func(context.Context) error { return nil }, PhaseFrontend)
	coord.RegisterFuncWithPhase("exporter", func(context.Context) error {
		return errors.New("flush failed")
	}, PhaseBackend)

	_ = coord.ShutdownWithTimeout(time.Second)

	if len(seen) != 2 {
		t.Fatalf("expected 2 progress callbacks, got %v", seen)
	}
	out := buf.String()
	if !strings.Contains(out, "shutdown_handler") || !strings.Contains(out, "handler=http") {
		t.Fatalf("expected handler log lines, got %q", out)
	}
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "error=flush failed") {
		t.Fatalf("expected failed handler at ERROR, got %q", out)
	}
}

func TestShutdownEmpty(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())
	if err := coord.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n := len(coord.Result().Results); n != 0 {
		t.Fatalf("expected no results, got %d", n)
	}
}

func TestHandleSignals(t *testing.T) {
	tests := []struct {
		name string
		fire func(interrupt, terminate chan os.Signal)
		want Trigger
	}{
		{
			name: "interrupt",
			fire: func(i, _ chan os.Signal) { i <- os.Interrupt },
			want: TriggerInterrupt,
		},
		{
			name: "terminate",
			fire: func(_, term chan os.Signal) { term <- syscall.SIGTERM },
			want: TriggerTerminate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := NewCoordinator(DefaultConfig())
			drained := make(chan struct{})
			coord.RegisterFunc("http", func(context.Context) error {
				close(drained)
				return nil
			})

			interrupt, terminate, opts := fakeSources()
			w := coord.HandleSignals(context.Background(), append(opts, WithNotice(&bytes.Buffer{}))...)
			tt.fire(interrupt, terminate)

			select {
			case <-coord.Done():
			case <-time.After(2 * time.Second):
				t.Fatal("shutdown did not complete")
			}
			<-drained

			if w.Trigger() != tt.want {
				t.Fatalf("waiter trigger = %v, want %v", w.Trigger(), tt.want)
			}
			if got := coord.Result().Trigger; got != tt.want {
				t.Fatalf("result trigger = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleSignalsCanceled(t *testing.T) {
	coord := NewCoordinator(DefaultConfig())
	coord.RegisterFunc("http", func(context.Context) error {
		t.Error("handler should not run when the wait is cancelled")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	_, _, opts := fakeSources()
	w := coord.HandleSignals(ctx, opts...)
	cancel()

	<-w.Done()
	if w.Trigger() != TriggerCanceled {
		t.Fatalf("expected TriggerCanceled, got %v", w.Trigger())
	}

	select {
	case <-coord.Done():
		t.Fatal("coordinator should not shut down on cancel")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNewCoordinatorDefaults(t *testing.T) {
	coord := NewCoordinator(Config{})
	if coord.config.DefaultTimeout != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %v", coord.config.DefaultTimeout)
	}

	coord.RegisterFunc("x", func(context.Context) error { return nil })
	if coord.handlers[0].phase != 100 {
		t.Fatalf("expected default phase 100, got %d", coord.handlers[0].phase)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
	cfg.DefaultTimeout = -time.Second
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestGroupByPhase(t *testing.T) {
	regs := []registration{
		{name: "a", phase: 10},
		{name: "b", phase: 10},
		{name: "c", phase: 20},
		{name: "d", phase: 30},
		{name: "e", phase: 30},
	}
	groups := groupByPhase(regs)

	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = len(g)
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 1 || sizes[2] != 2 {
		t.Fatalf("unexpected group sizes %v", sizes)
	}
	if groupByPhase(nil) != nil {
		t.Fatal("expected nil groups for no handlers")
	}
}
