//go:build !unix

package shutdown

// TerminateSupported reports whether TerminateSource can fire on this platform.
const TerminateSupported = false

// TerminateSource never fires on platforms without SIGTERM, leaving the
// interrupt as the only way to stop a Waiter.
func TerminateSource() Source {
	return Never()
}
