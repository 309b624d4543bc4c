//go:build windows

package control

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// Endpoint returns the pipe name. Named pipes live in a flat namespace, so
// the data directory root is ignored; the PID lock already holds instances
// to one per user profile.
func Endpoint(root string) string {
	return "fishcoin-control"
}

// pipeName maps the endpoint name onto the local named pipe namespace.
func pipeName(name string) string {
	return `\\.\pipe\` + name
}

// listen binds a named pipe restricted to the current user.
func listen(name string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		// Owner and SYSTEM only.
		SecurityDescriptor: "D:P(A;;GA;;;SY)(A;;GA;;;OW)",
	}
	return winio.ListenPipe(pipeName(name), cfg)
}

func dial(name string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(pipeName(name), &timeout)
}
