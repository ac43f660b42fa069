// package logging provides the structured leveled logger
// used by every component of the backdrop proxy service
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ServiceLogger is a json structured leveled logger
// used by the service to log messages to stdout
type ServiceLogger struct {
	*zerolog.Logger
}

var (
	serviceLogLevelToZeroLogLevel = map[string]zerolog.Level{
		"TRACE": zerolog.TraceLevel,
		"DEBUG": zerolog.DebugLevel,
		"INFO":  zerolog.InfoLevel,
		"ERROR": zerolog.ErrorLevel,
	}
)

// New creates and returns a new ServiceLogger writing to stdout and error (if any).
func New(logLevel string) (ServiceLogger, error) {
	return NewWithWriter(logLevel, os.Stdout)
}

// NewWithWriter creates a ServiceLogger that writes json log lines to w
func NewWithWriter(logLevel string, w io.Writer) (ServiceLogger, error) {
	zerologLevel, exists := serviceLogLevelToZeroLogLevel[logLevel]
	if !exists {
		return ServiceLogger{}, fmt.Errorf("invalid zero log level provided %s ", logLevel)
	}

	serviceLog := zerolog.New(w).Level(zerologLevel).With().Timestamp().Caller().Logger()

	return ServiceLogger{
		Logger: &serviceLog,
	}, nil
}
