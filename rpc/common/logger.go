package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelTags maps the levels xceiver logs at to the tag written in each line
var levelTags = map[logger.LogLevel]string{
	logger.DEBUG:   "DEBUG",
	logger.INFO:    "INFO",
	logger.WARNING: "WARN",
	logger.ERROR:   "ERROR",
}

// xceiverLogger writes "<date> <time> LEVEL | name | message" lines to its
// writer. The level can be changed while other goroutines log.
type xceiverLogger struct {
	name  string
	level atomic.Int32
	out   *log.Logger
}

func (l *xceiverLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *xceiverLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *xceiverLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *xceiverLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *xceiverLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs unconditionally and panics with the formatted message
func (l *xceiverLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("%-5s | %-13s | %s", "PANIC", l.name, msg)
	panic(msg)
}

// enabled reports whether messages of the given level are written
func (l *xceiverLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *xceiverLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("%-5s | %-13s | %s", levelTags[level], l.name, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// logOutput is where every logger created by CreateLogger writes to.
// stderr keeps the stdout of CLI commands (chunk data, listings) clean.
var logOutput io.Writer = os.Stderr

// CreateLogger is the logger factory handed to dragonboat's logger package
func CreateLogger(pkgName string) logger.ILogger {
	return newLogger(pkgName, logOutput, log.Ldate|log.Ltime)
}

func newLogger(name string, w io.Writer, flags int) *xceiverLogger {
	l := &xceiverLogger{
		name: name,
		out:  log.New(w, "", flags),
	}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// loggerNames lists every logger created with logger.GetLogger in this module
var loggerNames = []string{
	"rpc",
	"transport/rpc",
	"container",
	"cli",
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory and sets the level of all loggers
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
