// Package logging configures the global zerolog logger for the CLI and the
// Lambda function.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options control logger setup.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// Debug forces debug level regardless of Level.
	Debug bool
	// Console switches to human-readable output; otherwise JSON lines are
	// written, which is what CloudWatch expects.
	Console bool
	// Out defaults to stderr for the console writer and stdout for JSON.
	Out io.Writer
}

// Setup installs the global logger and level.
func Setup(opts Options) error {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if opts.Console {
		if out == nil {
			out = os.Stderr
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
		return nil
	}

	if out == nil {
		out = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}
