package client

import (
	"time"

	"github.com/cenkalti/backoff"
)

// GracePeriod is how long a dropped transport is presumed recoverable
// before the session is abandoned.
const GracePeriod = 3000 * time.Millisecond

// Watchdog observes a connection and reacts to transport loss: it redials
// for the length of the grace period, and abandons the session only when
// that fails.
type Watchdog struct {
	conn      *Conn
	grace     time.Duration
	onAbandon func()
	stop      chan struct{}
}

// NewWatchdog builds a watchdog over conn. onAbandon runs once if the grace
// period elapses without a restored transport; the caller is expected to
// return the user to a pre-session state.
func NewWatchdog(conn *Conn, onAbandon func()) *Watchdog {
	return &Watchdog{
		conn:      conn,
		grace:     GracePeriod,
		onAbandon: onAbandon,
		stop:      make(chan struct{}),
	}
}

// Run blocks, monitoring the connection. It returns when Stop is called or
// the session is abandoned. Run it in its own goroutine.
func (w *Watchdog) Run() {
	for {
		select {
		case <-w.stop:
			return
		case <-w.conn.Down():
			if !w.restore() {
				if w.onAbandon != nil {
					w.onAbandon()
				}
				return
			}
		}
	}
}

// Stop cancels monitoring, e.g. on explicit leave.
func (w *Watchdog) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// restore redials until the grace period is spent. A successful redial
// cancels the grace timer immediately.
func (w *Watchdog) restore() bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = w.grace

	err := backoff.Retry(func() error {
		select {
		case <-w.stop:
			return backoff.Permanent(errStopped)
		default:
		}
		return w.conn.redial()
	}, b)
	return err == nil
}

var errStopped = &stoppedError{}

type stoppedError struct{}

func (*stoppedError) Error() string { return "watchdog stopped" }
