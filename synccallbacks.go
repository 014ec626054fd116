package qtoggleserver

import "time"

// Compile-time interface check to ensure proper implementation.
var _ SyncNotifier = (*client)(nil)

// SyncFunc is called after each completed poll cycle. A nil err means the
// cycle succeeded; otherwise retryIn holds the delay before the next
// reconnect attempt.
type SyncFunc func(err error, retryIn time.Duration)

// SyncNotifier manages callbacks observing poll cycle outcomes.
type SyncNotifier interface {

	// AddSyncCallback registers a callback invoked once per completed
	// poll cycle.
	AddSyncCallback(fn SyncFunc) CallbackID

	// RemoveSyncCallback removes a registered callback.
	RemoveSyncCallback(id CallbackID)
}

// syncQueueSize bounds how many undelivered cycle outcomes may pile up
// before the poll loop blocks on the dispatcher.
const syncQueueSize = 16

// CallbackID identifies a registered sync callback.
type CallbackID uint64

// syncCallback is one registered poll-cycle observer.
type syncCallback struct {
	id CallbackID
	fn SyncFunc
}

// syncStatus is the outcome of one completed poll cycle. A nil err means
// the cycle succeeded; otherwise retry holds the delay before the next
// reconnect attempt.
type syncStatus struct {
	err   error
	retry time.Duration
}

// AddSyncCallback registers a callback invoked once per completed poll
// cycle: with a nil error after a successful cycle, or with the cycle's
// error and the computed reconnect delay after a failed one. Failures
// suppressed via SetIgnoreListenErrors are not reported.
//
// Callbacks run in registration order on a dedicated goroutine, never on
// the poll goroutine, so they may safely call back into the client.
func (c *client) AddSyncCallback(fn SyncFunc) CallbackID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextCallbackID++
	c.syncCallbacks = append(c.syncCallbacks, syncCallback{id: c.nextCallbackID, fn: fn})
	return c.nextCallbackID
}

// RemoveSyncCallback removes the callback registered under id. Unknown
// ids are a no-op.
func (c *client) RemoveSyncCallback(id CallbackID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cb := range c.syncCallbacks {
		if cb.id == id {
			c.syncCallbacks = append(c.syncCallbacks[:i], c.syncCallbacks[i+1:]...)
			return
		}
	}
}

// notifySync queues one poll-cycle outcome for delivery. The queue keeps
// outcomes ordered across cycles; when no callbacks are registered the
// outcome is dropped without touching the queue.
func (c *client) notifySync(status syncStatus) {
	c.mu.Lock()
	registered := len(c.syncCallbacks) > 0
	c.mu.Unlock()
	if !registered {
		return
	}

	select {
	case c.syncCh <- status:
	case <-c.done:
	}
}

// syncLoop delivers queued poll-cycle outcomes until the client closes.
func (c *client) syncLoop() {
	for {
		select {
		case status := <-c.syncCh:
			c.deliverSync(status)
		case <-c.done:
			return
		}
	}
}

func (c *client) deliverSync(status syncStatus) {
	c.mu.Lock()
	cbs := make([]syncCallback, len(c.syncCallbacks))
	copy(cbs, c.syncCallbacks)
	c.mu.Unlock()

	for _, cb := range cbs {
		c.callSyncCallback(cb, status)
	}
}

func (c *client) callSyncCallback(cb syncCallback, status syncStatus) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Uint64("callback_id", uint64(cb.id)).
				Interface("panic", r).
				Msg("sync callback panicked")
		}
	}()
	cb.fn(status.err, status.retry)
}
