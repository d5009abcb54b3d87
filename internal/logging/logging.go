package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger for one binary. Development gets pretty
// console output at debug level; every other environment logs JSON.
func Setup(app string, development bool, level string) error {
	return setup(os.Stdout, app, development, level)
}

func setup(out io.Writer, app string, development bool, level string) error {
	if app == "" {
		return fmt.Errorf("app name is required")
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	w := out
	if development {
		w = zerolog.ConsoleWriter{Out: out}
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Str("app", app).Timestamp().Logger()
	return nil
}
