// Windows probe implementation using user32/kernel32.
//
// Idle time comes from GetLastInputInfo against the 32-bit tick counter,
// lock state from OpenInputDesktop with DESKTOP_SWITCHDESKTOP (the input
// desktop cannot be opened while the workstation is locked), and the boss
// key from GetAsyncKeyState.

//go:build windows

package probe

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// ///////////////////////////////////////////////
// Win32 bindings
// ///////////////////////////////////////////////

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procOpenInputDesktop = user32.NewProc("OpenInputDesktop")
	procCloseDesktop     = user32.NewProc("CloseDesktop")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

const desktopSwitchDesktop = 0x0100

// lastInputInfo mirrors the Win32 LASTINPUTINFO structure.
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// ///////////////////////////////////////////////
// SystemProbe
// ///////////////////////////////////////////////

// SystemProbe reads live system state through Win32.
type SystemProbe struct {
	// BossKey is the virtual-key code polled for the hotkey signal.
	BossKey int
}

// New returns the platform probe with the given boss-key code.
func New(bossKey int) *SystemProbe {
	return &SystemProbe{BossKey: bossKey}
}

// Sample takes one reading of every signal.
func (p *SystemProbe) Sample() Sample {
	return Sample{
		IdleSeconds: idleSeconds(),
		Lock:        lockState(),
		HotkeyDown:  keyDown(p.BossKey),
	}
}

// idleSeconds returns the seconds since the last user input. A failed
// GetLastInputInfo call reads as zero idle, which errs on the side of
// treating the user as active.
func idleSeconds() float64 {
	lii := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, _ := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&lii)))
	if ok == 0 {
		return 0
	}
	now, _, _ := procGetTickCount.Call()
	// Both counters are 32-bit milliseconds; the subtraction is wrap-safe.
	elapsed := (uint32(now) - lii.dwTime)
	return float64(elapsed) / 1000.0
}

// lockState probes the input desktop. OpenInputDesktop returning a zero
// handle means the desktop is locked; a successful open means unlocked. If
// the API itself is unavailable the reading is [LockUnknown] rather than a
// guess.
func lockState() LockState {
	if procOpenInputDesktop.Find() != nil {
		return LockUnknown
	}
	h, _, _ := procOpenInputDesktop.Call(0, 0, desktopSwitchDesktop)
	if h == 0 {
		return Locked
	}
	procCloseDesktop.Call(h)
	return Unlocked
}

// keyDown reports whether the high bit of GetAsyncKeyState is set for vk.
func keyDown(vk int) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}
