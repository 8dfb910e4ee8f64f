// Package logging builds the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceField = "dealscope"

// New parses the configured level and returns a logger stamped with the
// service name. Local environments get a human-readable console writer;
// everything else emits JSON lines for log shippers.
func New(environment, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	return zerolog.New(writerFor(environment)).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceField).
		Logger(), nil
}

func writerFor(environment string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "local", "dev", "development":
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}
