// Package logging configures the global zerolog logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnvVar selects the log level: debug, info, warn, error (default: info).
const LevelEnvVar = "POST_IMAGE_LOG_LEVEL"

// Init initializes the global logger with the level from POST_IMAGE_LOG_LEVEL
// and a console writer on stderr.
func Init() {
	SetLevel(os.Getenv(LevelEnvVar))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitJSON is Init with plain JSON output, for CloudWatch.
func InitJSON() {
	SetLevel(os.Getenv(LevelEnvVar))
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// SetLevel sets the global level by name. Unknown names select info.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
