package nanocam

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	WARNINGLogger *log.Logger
	INFOLogger    *log.Logger
	ERRORLogger   *log.Logger
	DEBUGLogger   *log.Logger
)

var (
	LOG_LEVEL     = 20 // default log level
	DEBUG_LEVEL   = 10
	INFO_LEVEL    = 20
	WARNING_LEVEL = 30
	ERROR_LEVEL   = 40
)

const logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lmsgprefix | log.Lshortfile

func init() {
	INFOLogger = log.New(os.Stderr, "INFO ", logFlags)
	WARNINGLogger = log.New(os.Stderr, "WARNING ", logFlags)
	ERRORLogger = log.New(os.Stderr, "ERROR ", logFlags)
	DEBUGLogger = log.New(os.Stderr, "DEBUG ", logFlags)

	if logLevelStr := os.Getenv("LOG_LEVEL"); logLevelStr != "" {
		if !SetLogLevel(logLevelStr) {
			WARNINGLogger.Printf("Unrecognized LOG_LEVEL env variable value: %s. Keeping LOG_LEVEL at level INFO (20)", logLevelStr)
		}
	}
	applyLogLevel()
}

// SetLogLevel switches the package loggers to the named level
// (DEBUG, INFO, WARNING or ERROR). It reports false for an unknown name.
func SetLogLevel(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		LOG_LEVEL = DEBUG_LEVEL
	case "INFO":
		LOG_LEVEL = INFO_LEVEL
	case "WARNING", "WARN":
		LOG_LEVEL = WARNING_LEVEL
	case "ERROR":
		LOG_LEVEL = ERROR_LEVEL
	default:
		return false
	}
	applyLogLevel()
	return true
}

// Loggers below LOG_LEVEL write to io.Discard.
func applyLogLevel() {
	levels := []struct {
		logger *log.Logger
		level  int
	}{
		{DEBUGLogger, DEBUG_LEVEL},
		{INFOLogger, INFO_LEVEL},
		{WARNINGLogger, WARNING_LEVEL},
		{ERRORLogger, ERROR_LEVEL},
	}
	for _, l := range levels {
		if l.level < LOG_LEVEL {
			l.logger.SetOutput(io.Discard)
		} else {
			l.logger.SetOutput(os.Stderr)
		}
	}
}
