// Package probe abstracts the operating-system signals the accrual engine
// consumes: input idle time, workstation lock state, the boss-key state, and
// process liveness.
//
// Lock state is deliberately a three-variant value. Lock detection can fail
// under remote sessions, restricted desktops, or security software, and a
// failed reading must never be collapsed into "locked" or "unlocked";
// every consumer has to handle [LockUnknown] explicitly.
package probe

// ///////////////////////////////////////////////
// Lock State
// ///////////////////////////////////////////////

// LockState is the tri-state workstation lock reading.
type LockState int

const (
	// LockUnknown means the lock state could not be determined.
	LockUnknown LockState = iota
	// Locked means the workstation is confirmed locked.
	Locked
	// Unlocked means the workstation is confirmed unlocked.
	Unlocked
)

// String returns the lock state name for logs and display.
func (s LockState) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// ///////////////////////////////////////////////
// Sample
// ///////////////////////////////////////////////

// Sample is one reading of every probe signal, taken at the top of a tick.
type Sample struct {
	// IdleSeconds is the time since the last keyboard or mouse input.
	IdleSeconds float64
	// Lock is the tri-state workstation lock reading.
	Lock LockState
	// HotkeyDown is the raw down state of the boss key. Edge detection is
	// the caller's job; the probe reports level, not transitions.
	HotkeyDown bool
}

// ///////////////////////////////////////////////
// Probe
// ///////////////////////////////////////////////

// Probe supplies on-demand system state readings. The platform
// implementation lives behind this interface so the engine can be driven
// with synthetic samples in tests.
type Probe interface {
	// Sample takes one reading of idle time, lock state, and hotkey state.
	Sample() Sample
	// ProcessAlive reports whether a process with the given pid is running.
	ProcessAlive(pid int) bool
}
