// Package logger is a small leveled logger for console progress output.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gpstk/bindfinish/textutils"
)

type Level int

const (
	DEBUG Level = -1
	INFO  Level = 0
	WARN  Level = 1
	ERROR Level = 2
	FATAL Level = 99
)

func (lv Level) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		panic(fmt.Sprintf("invalid log level: %d", int(lv)))
	}
}

// Logger writes one entry per call. Multi-line messages
// start on a new line and are indented.
//
// The zero value discards everything.
type Logger struct {
	Writer   io.Writer
	Prefix   string
	MinLevel Level

	// Called instead of os.Exit after a FATAL entry, if set.
	Exit func(code int)
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return &Logger{}
}

func (l *Logger) Log(level Level, format string, args ...any) {
	if l == nil || l.Writer == nil || level < l.MinLevel {
		if level == FATAL {
			l.exit()
		}
		return
	}
	var b bytes.Buffer
	if l.Prefix != "" {
		b.WriteString(l.Prefix)
		b.WriteString(" ")
	}
	b.WriteString(level.String())
	b.WriteString(":")
	s := fmt.Sprintf(format, args...)
	if strings.Contains(strings.TrimSuffix(s, "\n"), "\n") {
		b.WriteString("\n")
		s = textutils.IndentString(s, "  ", 1)
	} else {
		b.WriteString(" ")
	}
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
	// Nothing sensible to do if the console is gone.
	_, _ = io.Copy(l.Writer, &b)
	if level == FATAL {
		l.exit()
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.Log(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.Log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Log(ERROR, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.Log(FATAL, format, args...) }

func (l *Logger) exit() {
	if l != nil && l.Exit != nil {
		l.Exit(1)
		return
	}
	os.Exit(1)
}
