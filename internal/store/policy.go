package store

import "time"

// ///////////////////////////////////////////////
// Save Policy
// ///////////////////////////////////////////////

// Flush describes how urgently the in-memory state needs to reach disk.
type Flush int

const (
	// Clean means the persisted copy matches memory.
	Clean Flush = iota
	// Dirty means memory has changed; save once the interval elapses.
	Dirty
	// DirtyForced means a boundary event (rollover, settlement, reset)
	// happened; save at the next opportunity regardless of the interval.
	DirtyForced
)

// SavePolicy decides when the accrual state actually gets written. It is an
// explicit three-state machine rather than scattered booleans: transitions
// to [Clean] happen only through [SavePolicy.Saved] after a verified
// successful write, so a failed save naturally leaves the state pending and
// the next eligible tick retries.
type SavePolicy struct {
	state    Flush
	interval time.Duration
	lastSave time.Duration
}

// NewSavePolicy returns a policy with the given minimum spacing between
// periodic saves.
func NewSavePolicy(interval time.Duration) *SavePolicy {
	return &SavePolicy{interval: interval}
}

// SetInterval updates the periodic spacing after a settings change.
func (p *SavePolicy) SetInterval(d time.Duration) { p.interval = d }

// MarkDirty records a state mutation. A pending forced save stays forced.
func (p *SavePolicy) MarkDirty() {
	if p.state == Clean {
		p.state = Dirty
	}
}

// MarkForced records a boundary event that must be persisted promptly.
func (p *SavePolicy) MarkForced() { p.state = DirtyForced }

// ShouldSave reports whether a save is due at the given monotonic instant:
// immediately when forced, or when dirty and the interval has elapsed since
// the last successful save.
func (p *SavePolicy) ShouldSave(nowMono time.Duration) bool {
	switch p.state {
	case DirtyForced:
		return true
	case Dirty:
		return nowMono-p.lastSave > p.interval
	default:
		return false
	}
}

// Pending reports whether any unsaved mutation exists. The shutdown path
// uses it to decide whether a final flush is needed at all.
func (p *SavePolicy) Pending() bool { return p.state != Clean }

// Saved records a verified successful write at the given monotonic instant.
func (p *SavePolicy) Saved(nowMono time.Duration) {
	p.state = Clean
	p.lastSave = nowMono
}

// State returns the current flush state.
func (p *SavePolicy) State() Flush { return p.state }
