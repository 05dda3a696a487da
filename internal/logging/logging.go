// Package logging builds the structured logger shared by the session,
// staking and wallet layers.
package logging

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// New returns a logger writing to w. Verbose lowers the level to debug;
// otherwise only warnings and errors are written.
func New(w io.Writer, verbose bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "zkcstake",
		Level:           log.WarnLevel,
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	l.SetStyles(styles())
	return l
}

// Discard is a logger that writes nothing.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Timestamp = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	s.Prefix = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9B5DE5"))
	s.Key = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B4D8"))
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB800")).SetString("WARN")
	s.Levels[log.ErrorLevel] = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).SetString("ERROR")
	return s
}
