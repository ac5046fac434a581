// Package xlog provides the structured logging facade shared by every
// fiberflow package. It mirrors the level-prefixed log.Logger wrapper
// used throughout the teacher codebase rather than reaching for a
// third-party logging library.
package xlog

import (
	"fmt"
	"log"
	"os"
)

// Logger is implemented by anything that can record leveled messages.
// Packages depend on this interface, never on the concrete type, so
// callers can swap in their own implementation.
type Logger interface {
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
}

type stdLogger struct {
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
}

// New creates a Logger backed by the standard library's log package,
// one writer per level, matching the teacher's defaultLogger.
func New(prefix string) Logger {
	if prefix != "" {
		prefix = prefix + " "
	}
	return &stdLogger{
		errorLogger: log.New(os.Stderr, prefix+"[ERROR] ", log.LstdFlags),
		warnLogger:  log.New(os.Stderr, prefix+"[WARN] ", log.LstdFlags),
		infoLogger:  log.New(os.Stdout, prefix+"[INFO] ", log.LstdFlags),
		debugLogger: log.New(os.Stdout, prefix+"[DEBUG] ", log.LstdFlags),
	}
}

func (l *stdLogger) Error(args ...interface{})                 { l.errorLogger.Output(3, fmt.Sprint(args...)) }
func (l *stdLogger) Errorf(format string, args ...interface{}) { l.errorLogger.Output(3, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Warn(args ...interface{})                  { l.warnLogger.Output(3, fmt.Sprint(args...)) }
func (l *stdLogger) Warnf(format string, args ...interface{})  { l.warnLogger.Output(3, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Info(args ...interface{})                  { l.infoLogger.Output(3, fmt.Sprint(args...)) }
func (l *stdLogger) Infof(format string, args ...interface{})  { l.infoLogger.Output(3, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Debug(args ...interface{})                 { l.debugLogger.Output(3, fmt.Sprint(args...)) }
func (l *stdLogger) Debugf(format string, args ...interface{}) { l.debugLogger.Output(3, fmt.Sprintf(format, args...)) }

// Nop is a Logger that discards everything, used in tests.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Error(args ...interface{})                  {}
func (nopLogger) Errorf(format string, args ...interface{})  {}
func (nopLogger) Warn(args ...interface{})                   {}
func (nopLogger) Warnf(format string, args ...interface{})   {}
func (nopLogger) Info(args ...interface{})                   {}
func (nopLogger) Infof(format string, args ...interface{})   {}
func (nopLogger) Debug(args ...interface{})                  {}
func (nopLogger) Debugf(format string, args ...interface{})  {}
