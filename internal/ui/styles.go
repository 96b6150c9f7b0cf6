package ui

import "github.com/fatih/color"

var (
	accent  = color.New(color.FgBlue)
	command = color.New(color.FgWhite)
	muted   = color.New(color.FgHiBlack)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
	header  = color.New(color.Bold, color.FgCyan)
)

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return accent.Sprint(s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return muted.Sprint(s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return command.Sprint(s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return success.Sprint(s) }

// RenderError returns s in bold red.
func RenderError(s string) string { return failure.Sprint(s) }

// RenderHeader returns s styled as a table or section header.
func RenderHeader(s string) string { return header.Sprint(s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when stdout is not a terminal.
func ForceColor() {
	color.NoColor = false
}

// Setup applies ShouldUseColor, or disables color when noColor is set.
func Setup(noColor bool) {
	if noColor || !ShouldUseColor() {
		ForceNoColor()
		return
	}
	ForceColor()
}
