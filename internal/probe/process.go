package probe

import "github.com/shirou/gopsutil/v3/process"

// ProcessAlive reports whether a process with the given pid exists. It backs
// the stale-lock check: a lock file naming a dead pid can be reclaimed.
func (p *SystemProbe) ProcessAlive(pid int) bool {
	alive, err := process.PidExists(int32(pid))
	if err != nil {
		// Cannot tell; treat the owner as alive so a live instance is
		// never clobbered on a flaky liveness read.
		return true
	}
	return alive
}
