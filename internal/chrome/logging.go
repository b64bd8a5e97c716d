package chrome

import (
	"log"
	"os"
	"strings"
)

// logger is the package-level sink for the handful of conditions that are
// worth reporting but must never become fatal: a malformed target event
// payload, a domain-enable call that failed, the transport closing. Frames
// the Multiplexer drops (unknown session, no pending call) and handler
// panics it recovers are not logged; that package has no logger. The
// teacher never reaches for a structured-logging library either — it logs
// straight to stderr with fmt.Fprintf — so this module follows the same
// plain stdlib *log.Logger idiom rather than introducing one.
var logger = log.New(os.Stderr, "pipecdp: ", log.LstdFlags)

// logLevel orders verbosity from noisiest to quietest; PIPECDP_LOG_LEVEL
// selects one of these and nothing else — logging configuration never
// changes observable driver behavior, only what gets written to logger.
type logLevel int

const (
	logLevelDebug logLevel = iota
	logLevelInfo
	logLevelWarn
	logLevelOff
)

var currentLogLevel = logLevelFromEnv(os.Getenv("PIPECDP_LOG_LEVEL"))

func logLevelFromEnv(v string) logLevel {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logLevelDebug
	case "warn", "warning":
		return logLevelWarn
	case "off", "none", "silent":
		return logLevelOff
	default:
		return logLevelInfo
	}
}

// SetLogOutput lets a caller (notably the CLI) redirect diagnostic output.
func SetLogOutput(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// logf reports at info level: a malformed event payload, a domain-enable
// call that failed, the transport closing — worth seeing by default, never
// fatal.
func logf(format string, args ...interface{}) {
	if currentLogLevel > logLevelInfo {
		return
	}
	logger.Printf(format, args...)
}

// logDebugf reports tab/target lifecycle detail only worth printing when
// PIPECDP_LOG_LEVEL=debug.
func logDebugf(format string, args ...interface{}) {
	if currentLogLevel > logLevelDebug {
		return
	}
	logger.Printf(format, args...)
}
