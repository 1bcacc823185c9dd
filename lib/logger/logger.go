// Package logger provides leveled logging utilities for the library and CLI
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

// LogLevel controls which messages a logger emits
type LogLevel int

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// ParseLogLevel converts a string level to a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warning", "warn":
		return WARNING, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger Interface
// --------------------------------------------------------------------------

// ILogger is the interface for all named loggers
type ILogger interface {
	SetLevel(level LogLevel)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Logger Implementation
// --------------------------------------------------------------------------

// fkvLogger implements the ILogger interface with custom formatting
type fkvLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

func (l *fkvLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *fkvLogger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *fkvLogger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *fkvLogger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *fkvLogger) Errorf(format string, args ...interface{}) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *fkvLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

// loggers holds one logger instance per package name
var loggers = xsync.NewMapOf[string, *fkvLogger]()

// GetLogger returns the named logger, creating it on first use.
// Loggers default to the INFO level.
func GetLogger(pkgName string) ILogger {
	l, _ := loggers.LoadOrCompute(pkgName, func() *fkvLogger {
		return &fkvLogger{
			name:   pkgName,
			level:  INFO,
			logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
		}
	})
	return l
}

// SetLevelAll sets the level of every logger registered so far.
// Loggers created afterwards start at the INFO level again.
func SetLevelAll(level LogLevel) {
	loggers.Range(func(_ string, l *fkvLogger) bool {
		l.SetLevel(level)
		return true
	})
}
