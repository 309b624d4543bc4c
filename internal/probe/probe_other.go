// Non-Windows probe stub.
//
// Lock detection and input-idle tracking are only wired up for Windows, the
// platform the original tool targets. Elsewhere the probe reports an unknown
// lock state and zero idle time, which routes every working-hours tick
// through the conservative unknown-lock branch of the engine.

//go:build !windows

package probe

// SystemProbe is the non-Windows placeholder probe.
type SystemProbe struct {
	// BossKey is accepted for interface parity but never reported as down.
	BossKey int
}

// New returns the platform probe with the given boss-key code.
func New(bossKey int) *SystemProbe {
	return &SystemProbe{BossKey: bossKey}
}

// Sample reports an unknown lock state and no idle time.
func (p *SystemProbe) Sample() Sample {
	return Sample{IdleSeconds: 0, Lock: LockUnknown, HotkeyDown: false}
}
