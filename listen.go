package qtoggleserver

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rajtan/qtoggleserver/pkg/constants"
	"github.com/rajtan/qtoggleserver/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ ListenController = (*client)(nil)

// ListenController drives the long-poll loop.
type ListenController interface {

	// StartListening starts the poll loop; it fails when already
	// listening.
	StartListening() error

	// StopListening supersedes the current listening generation.
	StopListening()

	// IsListening reports whether the poll loop is running.
	IsListening() bool

	// LastListenError returns the error recorded by the most recent
	// failed poll cycle, or nil.
	LastListenError() error

	// SetIgnoreListenErrors controls suppression of poll failures.
	SetIgnoreListenErrors(ignore bool)

	// SessionID returns the identifier sent with every listen request.
	SessionID() string
}

// StartListening starts the long-poll loop in a background goroutine.
// It fails with ErrAlreadyListening when the loop is already running:
// callers own the start/stop pairing, so a double start is a caller bug,
// not a condition to recover from.
func (c *client) StartListening() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.ErrClientClosed
	}
	if c.listenStopCh != nil {
		c.mu.Unlock()
		return errors.ErrAlreadyListening
	}

	stopCh := make(chan struct{})
	c.listenStopCh = stopCh
	c.listenTime = time.Now()
	c.listenErrorCount = 0
	c.lastListenError = nil
	c.mu.Unlock()

	go c.listenLoop(stopCh)

	c.logger.Info().Msg("listening started")
	return nil
}

// StopListening marks the current listening generation superseded and
// returns immediately. The in-flight poll request is deliberately not
// aborted: its response is discarded when it eventually arrives, which
// costs one wasted response instead of plumbing cancellation through the
// transport. Pending expectations are left to run out their own
// timeouts.
func (c *client) StopListening() {
	c.mu.Lock()
	stopCh := c.listenStopCh
	started := c.listenTime
	c.listenStopCh = nil
	c.listenTime = time.Time{}
	c.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)

	c.logger.Info().Dur("uptime", time.Since(started)).Msg("listening stopped")
}

// IsListening reports whether the poll loop is currently running.
func (c *client) IsListening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listenStopCh != nil
}

// LastListenError returns the error recorded by the most recent failed
// poll cycle. A successful cycle clears it, so a nil result while
// listening means the connection is healthy.
func (c *client) LastListenError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastListenError
}

// SetIgnoreListenErrors controls suppression of poll failures. While
// set, a failed cycle is logged and retried quickly without counting
// toward backoff and without notifying sync callbacks. Collaborators
// that expect the server to disappear briefly, such as a firmware
// updater, set this around the outage.
func (c *client) SetIgnoreListenErrors(ignore bool) {
	c.mu.Lock()
	c.ignoreListenErrors = ignore
	c.mu.Unlock()
}

// SessionID returns the stable identifier sent with every listen
// request. The server keys its per-client event queue on it.
func (c *client) SessionID() string {
	return c.sessionID
}

// listenLoop drives successive poll cycles for one listening generation.
// stopCh identifies the generation: once it no longer matches the
// client's current channel, every outcome of this loop is stale and is
// discarded without mutating client state, dispatching events or
// scheduling another cycle.
func (c *client) listenLoop(stopCh chan struct{}) {
	first := true
	prevErrored := false

	for {
		c.mu.Lock()
		if c.listenStopCh != stopCh {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		// Hold the request briefly on the first cycle and right after
		// an error, so a reconnect resolves quickly instead of waiting
		// out a full keep-alive window.
		hold := c.opts.listenKeepalive
		if first || prevErrored {
			hold = constants.QuickListenTimeout
		}
		first = false

		events, err := c.poll(hold)

		c.mu.Lock()
		if c.listenStopCh != stopCh {
			c.mu.Unlock()
			return
		}

		if err != nil {
			prevErrored = true
			ignore := c.ignoreListenErrors
			retryIn := constants.FastReconnectDelay
			errorCount := 0
			if !ignore {
				c.listenErrorCount++
				c.lastListenError = err
				errorCount = c.listenErrorCount
				retryIn = c.reconnectDelay(errorCount)
			}
			c.mu.Unlock()

			if ignore {
				c.logger.Debug().Err(err).Msg("listen error ignored")
			} else {
				c.logger.Warn().
					Err(err).
					Int("error_count", errorCount).
					Dur("retry_in", retryIn).
					Msg("listen request failed")
				c.notifySync(syncStatus{err: err, retry: retryIn})
			}

			if !c.waitRetry(retryIn, stopCh) {
				return
			}
			continue
		}

		prevErrored = false
		c.listenErrorCount = 0
		c.lastListenError = nil
		c.mu.Unlock()

		c.notifySync(syncStatus{})
		c.dispatchBatch(events)
	}
}

// poll issues one long-poll request and decodes the returned batch. The
// request context derives from Background rather than from the stop
// signal: stopping the loop must not abort an in-flight call, so the
// context only bounds how long the server may hold the request beyond
// the agreed window.
func (c *client) poll(hold time.Duration) ([]*Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), hold+c.opts.serverTimeoutMargin)
	defer cancel()

	query := url.Values{
		"session_id": []string{c.sessionID},
		"timeout":    []string{strconv.Itoa(int(hold / time.Second))},
	}

	var events []*Event
	if err := c.api.GetJSON(ctx, "/listen", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// reconnectDelay computes the wait before the next poll attempt after
// the given number of consecutive failures. The first few failures fall
// inside the fast-reconnect window and retry quickly; after that the
// steady-state retry interval applies.
func (c *client) reconnectDelay(errorCount int) time.Duration {
	if errorCount <= constants.FastReconnectListenErrors {
		return constants.FastReconnectDelay
	}
	return c.opts.listenRetryInterval
}

// waitRetry sleeps for d before the next reconnect attempt. It returns
// false when the generation is stopped or the client closes while
// waiting.
func (c *client) waitRetry(d time.Duration, stopCh chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-stopCh:
		return false
	case <-c.done:
		return false
	}
}

// dispatchBatch routes a batch of events through the expectation
// registry first and the listener registry second, preserving server
// order within each phase. A waiter and a listener observing the same
// event therefore agree on its expected flag. An empty batch is a
// keep-alive and dispatches nothing. Panics raised while processing the
// batch are logged without breaking the poll chain.
func (c *client) dispatchBatch(events []*Event) {
	if len(events) == 0 {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("event dispatch panicked")
		}
	}()

	for _, ev := range events {
		c.matchExpectation(ev)
	}
	for _, ev := range events {
		c.notifyListeners(ev)
	}

	c.logger.Debug().Int("count", len(events)).Msg("event batch dispatched")
}

// Compile-time interface check to ensure proper implementation.
var _ Faker = (*client)(nil)

// Faker injects locally synthesized events.
type Faker interface {

	// FakeEvent dispatches a synthetic event as if the server had sent
	// it.
	FakeEvent(eventType EventType, params map[string]any)
}

// FakeEvent synthesizes an event locally and routes it through the exact
// dispatch path a server event takes, with no network round trip. The
// event is marked fake; if it satisfies a pending expectation it is
// resolved and marked expected like any other event.
func (c *client) FakeEvent(eventType EventType, params map[string]any) {
	ev := NewEvent(eventType, params)
	ev.Fake = true
	c.dispatchBatch([]*Event{ev})
}
