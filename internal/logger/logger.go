// Package logger configures the console logger of the commands.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// NewConsoleFormatter returns the prefixed text formatter used on the console.
func NewConsoleFormatter() *prefixed.TextFormatter {
	f := prefixed.TextFormatter{}

	f.FullTimestamp = true
	f.ForceFormatting = true
	f.TimestampFormat = "2006-01-02 15:04:05.000 MST"

	f.SetColorScheme(&prefixed.ColorScheme{
		PrefixStyle:     "blue+h",
		InfoLevelStyle:  "white+h",
		DebugLevelStyle: "cyan",
	})

	return &f
}

// New returns a logger writing to out. Debug messages are enabled by verbose.
func New(out io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.Out = out
	log.Formatter = NewConsoleFormatter()
	log.Level = logrus.InfoLevel
	if verbose {
		log.Level = logrus.DebugLevel
	}
	return log
}
