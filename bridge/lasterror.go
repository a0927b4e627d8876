package bridge

import "sync"

// lastError is the runtime-wide last-error value, overwritten by every
// failing operation and readable at any time. It has its own lock,
// independent of the registry, so error reads never contend with model
// state access.
//
// Any goroutine's failure overwrites the value, so a read only tells the
// caller what failed most recently somewhere in the runtime. Callers that
// need reliable per-request diagnostics use the request record's Err field.
type lastError struct {
	mu  sync.Mutex
	msg string
}

// set overwrites the shared value.
func (l *lastError) set(msg string) {
	l.mu.Lock()
	l.msg = msg
	l.mu.Unlock()
}

// setErr records err's message; nil is ignored.
func (l *lastError) setErr(err error) {
	if err == nil {
		return
	}
	l.set(err.Error())
}

// get returns the most recently set message. Empty when no operation has
// failed yet.
func (l *lastError) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.msg
}
