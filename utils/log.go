package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	colorGrey   = "\x1b[38;20m"
	colorGreen  = "\x1b[32;20m"
	colorYellow = "\x1b[33;20m"
	colorRed    = "\x1b[31;1m"
	colorClear  = "\x1b[0m"
)

const LogTimeFormat = "2006-01-02 15:04:05"

// LogFormatter prints "[time name (LEVEL)] message key=value" lines,
// colored by level unless NoColors is set.
type LogFormatter struct {
	Name     string
	NoColors bool
}

func levelColor(l logrus.Level) string {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return colorGrey
	case logrus.InfoLevel:
		return colorGreen
	case logrus.WarnLevel:
		return colorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return colorRed
	}
	return colorClear
}

func (f *LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if !f.NoColors {
		b.WriteString(levelColor(e.Level))
	}
	fmt.Fprintf(&b, "[%s %s (%s)] %s", e.Time.Format(LogTimeFormat), f.Name, strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}

	if !f.NoColors {
		b.WriteString(colorClear)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// NewLogger returns a named logger writing to stderr.
func NewLogger(name string, level logrus.Level) *logrus.Entry {
	return NewLoggerTo(os.Stderr, name, level, false)
}

func NewLoggerTo(w io.Writer, name string, level logrus.Level, noColors bool) *logrus.Entry {
	l := logrus.New()
	l.Out = w
	l.Level = level
	l.Formatter = &LogFormatter{Name: name, NoColors: noColors}
	return logrus.NewEntry(l)
}
