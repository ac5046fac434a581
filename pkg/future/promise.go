package future

// Promise is a Future distinguished only by intent: code holding a
// *Promise is expected to be the sole completer, while code holding
// the embedded *Future is expected to only read/listen. The teacher's
// pkg/fluxor/reactive.go promise type wraps a Future the same way;
// TryComplete/TryFail report whether this call actually won the race
// to complete, so callers can detect (and, at their discretion, log)
// the double-complete misuse case §7 calls out as "a programmer error
// that must never corrupt state."
type Promise struct {
	*Future
}

// NewPromise creates a new externally-completable Promise.
func NewPromise() *Promise {
	return &Promise{Future: NewPending()}
}

// TryComplete attempts to resolve the promise, returning false if it
// was already terminal.
func (p *Promise) TryComplete(v interface{}) bool {
	return p.Resolve(v)
}

// TryFail attempts to reject the promise, returning false if it was
// already terminal.
func (p *Promise) TryFail(err error) bool {
	return p.Reject(err)
}
