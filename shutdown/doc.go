// Package shutdown waits for a stop request and drains the process.
//
// # Waiting
//
// A Waiter races two wait sources and returns on whichever fires first:
//
//   - interrupt: os.Interrupt (Ctrl+C). Writes "interrupt received" to stderr.
//   - terminate: SIGTERM on unix; on other platforms a source that never
//     fires, so only the interrupt can end the wait.
//
// The losing source is unregistered. A Waiter is one-shot: later calls to
// Wait return the first Trigger without blocking.
//
//	trigger := shutdown.AwaitShutdown(ctx)
//
// # Draining
//
// A Coordinator runs shutdown handlers in phases after the wait ends:
//
//	coord := shutdown.NewCoordinator(shutdown.DefaultConfig())
//	coord.RegisterWithPhase("http-server", srv, shutdown.PhaseFrontend)
//	coord.RegisterFuncWithPhase("telemetry", provider.Shutdown, shutdown.PhaseBackend)
//	coord.HandleSignals(ctx)
//	<-coord.Done()
//
// Lower phases finish first. Handlers in the same phase run concurrently and
// share the shutdown deadline.
package shutdown
