package display

import (
	"github.com/pterm/pterm"
)

// Table prints rows under header as a boxed terminal table.
func Table(header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}

// Success prints a confirmation line.
func Success(format string, args ...interface{}) {
	pterm.Success.Printfln(format, args...)
}

// Info prints an informational line.
func Info(format string, args ...interface{}) {
	pterm.Info.Printfln(format, args...)
}

// Warning prints a warning line.
func Warning(format string, args ...interface{}) {
	pterm.Warning.Printfln(format, args...)
}
