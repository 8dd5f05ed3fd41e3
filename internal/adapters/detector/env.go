// Package detector picks the output mode for the current environment.
package detector

import (
	"os"

	"go.trai.ch/parcel/internal/core/domain"
	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto defers the decision to detection.
	ModeAuto OutputMode = iota
	// ModeInteractive redraws a single progress line in place.
	ModeInteractive
	// ModeLinear prints one line per event.
	ModeLinear
)

// String returns the name used on the command line.
func (m OutputMode) String() string {
	switch m {
	case ModeInteractive:
		return domain.OutputInteractive
	case ModeLinear:
		return domain.OutputLinear
	default:
		return domain.OutputAuto
	}
}

// DetectEnvironment returns the recommended output mode: linear when stdout
// is not a terminal or a CI environment is detected, interactive otherwise.
func DetectEnvironment() OutputMode {
	return Detect(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv)
}

// Detect is DetectEnvironment with its inputs made explicit.
func Detect(isTTY bool, getenv func(string) string) OutputMode {
	ci := getenv("CI")
	isCI := ci == "true" || ci == "1"

	if !isTTY || isCI || getenv("TERM") == "dumb" {
		return ModeLinear
	}
	return ModeInteractive
}

// ResolveMode applies the user's choice to the detected mode. Anything other
// than "interactive" or "linear" keeps the detected mode.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case domain.OutputInteractive:
		return ModeInteractive
	case domain.OutputLinear:
		return ModeLinear
	default:
		return autoDetected
	}
}
