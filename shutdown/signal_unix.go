//go:build unix

package shutdown

import "syscall"

// TerminateSupported reports whether TerminateSource can fire on this platform.
const TerminateSupported = true

// TerminateSource registers for SIGTERM, the polite stop request sent by
// process managers and container runtimes.
func TerminateSource() Source {
	return NotifySource("terminate", syscall.SIGTERM)
}
