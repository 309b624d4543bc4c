package engine

import (
	"fmt"

	"tools.zach/dev/fishcoin/internal/probe"
)

// ///////////////////////////////////////////////
// Display Intent
// ///////////////////////////////////////////////

// DisplayIntent is what the rendering layer should show after a tick: a
// glyph-prefixed text line, a color, and a window opacity. The engine owns
// the decision; drawing it is somebody else's problem.
type DisplayIntent struct {
	// Text is the glyph plus the formatted running total.
	Text string
	// Color is the hex text color.
	Color string
	// Alpha is the window opacity in [0, 1].
	Alpha float64
	// Status is the schedule classification the tick ran under.
	Status Status
	// Lock is the lock reading the tick ran under.
	Lock probe.LockState
}

// Display colors, carried over from the desktop widget.
const (
	colorEarning   = "#FFD700"
	colorGrace     = "#00FF7F"
	colorGraceOver = "#FF4500"
	colorUnknown   = "#E6E6FA"
	colorIdle      = "#AAAAAA"
	colorPaused    = "#B0B0B0"
	colorLunch     = "#FFA500"
	colorOffWork   = "#00BFFF"
	colorHidden    = "#000000"
)

// intent builds a DisplayIntent with the running total formatted to four
// decimal places, matching the widget's display precision.
func intent(glyph string, money float64, color string, alpha float64, status Status, lock probe.LockState) DisplayIntent {
	return DisplayIntent{
		Text:   fmt.Sprintf("%s %.4f", glyph, money),
		Color:  color,
		Alpha:  alpha,
		Status: status,
		Lock:   lock,
	}
}
