package shutdown

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/westshgit/apidoc/logging"
)

// fakeSources returns two injectable sources and their send ends.
func fakeSources() (chan os.Signal, chan os.Signal, []Option) {
	interrupt := make(chan os.Signal, 1)
	terminate := make(chan os.Signal, 1)
	return interrupt, terminate, []Option{
		WithInterrupt(ChannelSource("interrupt", interrupt)),
		WithTerminate(ChannelSource("terminate", terminate)),
	}
}

func TestWaiterInterrupt(t *testing.T) {
	interrupt, _, opts := fakeSources()
	var notice bytes.Buffer
	w := NewWaiter(append(opts, WithNotice(&notice))...)

	interrupt <- os.Interrupt

	if got := w.Wait(context.Background()); got != TriggerInterrupt {
		t.Fatalf("expected TriggerInterrupt, got %v", got)
	}
	if notice.String() != InterruptNotice+"\n" {
		t.Fatalf("expected notice %q, got %q", InterruptNotice, notice.String())
	}
}

func TestWaiterTerminateIsSilent(t *testing.T) {
	_, terminate, opts := fakeSources()
	var notice bytes.Buffer
	w := NewWaiter(append(opts, WithNotice(&notice))...)

	terminate <- syscall.SIGTERM

	if got := w.Wait(context.Background()); got != TriggerTerminate {
		t.Fatalf("expected TriggerTerminate, got %v", got)
	}
	if notice.Len() != 0 {
		t.Fatalf("expected no notice on terminate, got %q", notice.String())
	}
}

func TestWaiterBlocksUntilFired(t *testing.T) {
	interrupt, _, opts := fakeSources()
	w := NewWaiter(append(opts, WithNotice(&bytes.Buffer{}))...)

	result := make(chan Trigger, 1)
	go func() {
		result <- w.Wait(context.Background())
	}()

	select {
	case got := <-result:
		t.Fatalf("Wait returned %v before any source fired", got)
	case <-time.After(50 * time.Millisecond):
	}

	interrupt <- os.Interrupt

	select {
	case got := <-result:
		if got != TriggerInterrupt {
			t.Fatalf("expected TriggerInterrupt, got %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after interrupt")
	}
}

func TestWaiterInterruptOnly(t *testing.T) {
	interrupt := make(chan os.Signal, 1)
	newWaiter := func() *Waiter {
		return NewWaiter(
			WithInterrupt(ChannelSource("interrupt", interrupt)),
			WithTerminate(Never()),
			WithNotice(&bytes.Buffer{}),
		)
	}

	// Without an interrupt, only the context can end the wait.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if got := newWaiter().Wait(ctx); got != TriggerCanceled {
		t.Fatalf("expected TriggerCanceled, got %v", got)
	}

	interrupt <- os.Interrupt
	if got := newWaiter().Wait(context.Background()); got != TriggerInterrupt {
		t.Fatalf("expected TriggerInterrupt, got %v", got)
	}
}

func TestWaiterBothFireReturnsOnce(t *testing.T) {
	interrupt, terminate, opts := fakeSources()
	w := NewWaiter(append(opts, WithNotice(&bytes.Buffer{}))...)

	interrupt <- os.Interrupt
	terminate <- syscall.SIGTERM

	const callers = 8
	results := make([]Trigger, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = w.Wait(context.Background())
		}(i)
	}
	wg.Wait()

	first := results[0]
	if first != TriggerInterrupt && first != TriggerTerminate {
		t.Fatalf("unexpected trigger %v", first)
	}
	for i, r := range results {
		if r != first {
			t.Fatalf("caller %d got %v, caller 0 got %v", i, r, first)
		}
	}

	// the losing source is left untouched
	if len(interrupt)+len(terminate) != 1 {
		t.Fatalf("expected exactly one source to be consumed, %d signals left", len(interrupt)+len(terminate))
	}
}

func TestWaiterIsOneShot(t *testing.T) {
	_, terminate, opts := fakeSources()
	w := NewWaiter(append(opts, WithNotice(&bytes.Buffer{}))...)

	if w.Trigger() != TriggerNone {
		t.Fatal("expected TriggerNone before Wait")
	}

	terminate <- syscall.SIGTERM
	w.Await(context.Background())

	select {
	case <-w.Done():
	default:
		t.Fatal("expected Done to be closed")
	}

	// A cancelled context does not change the recorded result.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := w.Wait(ctx); got != TriggerTerminate {
		t.Fatalf("expected repeated Wait to return TriggerTerminate, got %v", got)
	}
	if w.Trigger() != TriggerTerminate {
		t.Fatalf("expected Trigger() = terminate, got %v", w.Trigger())
	}
}

func TestWaiterStopsSources(t *testing.T) {
	stopped := 0
	src := func(name string) Source {
		s := Never()
		s.name = name
		s.stop = func() { stopped++ }
		return s
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWaiter(WithInterrupt(src("interrupt")), WithTerminate(src("terminate")))
	w.Wait(ctx)

	if stopped != 2 {
		t.Fatalf("expected both sources to be stopped, got %d", stopped)
	}
}

func TestWaiterLogsTrigger(t *testing.T) {
	_, terminate, opts := fakeSources()
	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(&buf)

	w := NewWaiter(append(opts, WithLogger(logger))...)
	terminate <- syscall.SIGTERM
	w.Wait(context.Background())

	if !strings.Contains(buf.String(), "shutdown_signal trigger=terminate") {
		t.Fatalf("expected trigger to be logged, got %q", buf.String())
	}
}

func TestTriggerString(t *testing.T) {
	tests := map[Trigger]string{
		TriggerNone:      "none",
		TriggerInterrupt: "interrupt",
		TriggerTerminate: "terminate",
		TriggerCanceled:  "canceled",
		Trigger(99):      "none",
	}
	for trig, want := range tests {
		if trig.String() != want {
			t.Errorf("Trigger(%d).String() = %q, want %q", int(trig), trig.String(), want)
		}
	}
}

func TestNeverSource(t *testing.T) {
	s := Never()
	if s.Name() != "never" {
		t.Fatalf("expected name 'never', got %q", s.Name())
	}
	s.Stop()

	select {
	case <-s.c:
		t.Fatal("never source fired")
	case <-time.After(10 * time.Millisecond):
	}
}
