//go:build !windows

package control

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"tools.zach/dev/fishcoin/internal/paths"
)

// Endpoint returns the control socket path inside the data directory.
func Endpoint(root string) string {
	return filepath.Join(root, paths.ControlName)
}

// listen binds a unix socket at path. A leftover socket from an unclean
// shutdown is removed first; the PID lock already guarantees no live
// instance owns it.
func listen(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	os.Chmod(path, 0o600)
	return ln, nil
}

func dial(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}
