// Package errs defines the tagged error type futures and channels
// reject with. It generalizes the teacher's &Error{Code, Message}
// (pkg/core/eventbus.go, pkg/core/vertx.go) with a Domain field so
// combinators can tell a channel-close rejection from a user callback
// error without string matching.
package errs

import "errors"

// Error is a tagged, domain-scoped error carried by a rejected future.
type Error struct {
	Domain  string
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Domain != "" {
		return e.Domain + "." + e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Message
}

// New builds a tagged Error.
func New(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

const (
	DomainChannel   = "channel"
	DomainScheduler = "scheduler"
	DomainFiber     = "fiber"
	DomainFuture    = "future"
	DomainTimeout   = "timeout"
)

// Sentinel errors used directly (errors.Is-able), matching the
// teacher's plain errors.New sentinels in pkg/reactor/errors.go and
// pkg/core/concurrency/mailbox.go.
var (
	// ErrChannelClosed is returned by send/receive once the channel's
	// relevant half has been closed and no more items can be delivered.
	ErrChannelClosed = errors.New("fiberflow: channel closed")

	// ErrTimedOut is the rejection reason for a timeout future whose
	// deadline has elapsed.
	ErrTimedOut = errors.New("fiberflow: timed out")

	// ErrDependencyFailed is the sentinel form of "a dependency
	// rejected". The future combinators All and Any do not return it:
	// they reject with a tagged *Error whose Code is DEPENDENCY_FAILED.
	ErrDependencyFailed = errors.New("fiberflow: dependency failed")

	// ErrSchedulerBusy is returned by Dispatch when another goroutine
	// already owns the scheduler's single-active-fiber discipline.
	ErrSchedulerBusy = errors.New("fiberflow: scheduler already dispatching")

	// ErrIllegalMigration is returned by MigrateTo when called on a
	// fiber that is currently running.
	ErrIllegalMigration = errors.New("fiberflow: cannot migrate a running fiber")

	// ErrAlreadyStarted / ErrNotStarted guard scheduler/fiber lifecycle
	// misuse, mirroring pkg/core/base_verticle.go's ALREADY_STARTED check.
	ErrAlreadyStarted = errors.New("fiberflow: already started")
	ErrNotStarted      = errors.New("fiberflow: not started")
)

// AsTagged reports whether err is (or wraps) a *Error and returns it.
func AsTagged(err error) (*Error, bool) {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged, true
	}
	return nil, false
}
