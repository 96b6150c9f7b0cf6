package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnv is the paymo-specific override: "always", "never" or "auto".
const ColorEnv = "PAYMO_COLOR"

// ShouldUseColor reports whether stdout output should carry ANSI colors.
func ShouldUseColor() bool {
	return colorFromEnv(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

// IsInteractive reports whether stdin is a terminal, i.e. whether the CLI
// may prompt.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// colorFromEnv applies, in order: PAYMO_COLOR, NO_COLOR (https://no-color.org),
// CLICOLOR_FORCE, CLICOLOR, then falls back to tty.
func colorFromEnv(getenv func(string) string, tty bool) bool {
	switch strings.ToLower(strings.TrimSpace(getenv(ColorEnv))) {
	case "always":
		return true
	case "never":
		return false
	}
	if getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(getenv("CLICOLOR")) == "0" {
		return false
	}
	return tty
}
