package qtoggleserver

import (
	"context"
	"reflect"
	"time"

	"github.com/rajtan/qtoggleserver/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Expecter = (*client)(nil)

// Expecter registers and awaits expectations for specific events.
type Expecter interface {

	// ExpectEvent registers an expectation for the next matching event,
	// returning a handle to wait on.
	ExpectEvent(eventType EventType, params map[string]any, timeout time.Duration) Handle

	// UnexpectEvent cancels a registered expectation.
	UnexpectEvent(h Handle)

	// WaitEvent waits for the expectation identified by handle.
	WaitEvent(ctx context.Context, h Handle) (*Event, error)

	// WaitExpectedEvent joins the first registered expectation matching
	// the criteria and waits for it.
	WaitExpectedEvent(ctx context.Context, eventType EventType, params map[string]any) (*Event, error)
}

// Handle identifies a registered expectation.
type Handle uint64

// expectation is a registered intent to observe one matching event.
type expectation struct {
	handle    Handle
	eventType EventType
	params    map[string]any
	timeout   time.Duration
	deadline  time.Time

	// result is written exactly once, before resolved is closed.
	// Readers must only access it after resolved is closed.
	result   waitResult
	resolved chan struct{}
}

type waitResult struct {
	event *Event
	err   error
}

// matches reports whether the candidate event satisfies this expectation.
// An empty expectation type matches any event type. Params match by key
// subset: every expectation key must hold an identical value in the
// candidate, extra candidate keys are ignored.
func (x *expectation) matches(ev *Event) bool {
	if x.eventType != "" && x.eventType != ev.Type {
		return false
	}
	for key, want := range x.params {
		got, ok := ev.Params[key]
		if !ok || !reflect.DeepEqual(want, got) {
			return false
		}
	}
	return true
}

// ExpectEvent registers an expectation for the next event matching
// eventType and params, returning immediately with a handle to wait on.
// An empty eventType matches any type; params match by key subset. A
// non-positive timeout selects the client's default expect timeout.
//
// Register the expectation before issuing the request that triggers the
// event, otherwise the event may arrive before the registry knows about
// it.
func (c *client) ExpectEvent(eventType EventType, params map[string]any, timeout time.Duration) Handle {
	if timeout <= 0 {
		timeout = c.opts.expectTimeout
	}
	entry := &expectation{
		eventType: eventType,
		params:    deepCopyParams(params),
		timeout:   timeout,
		resolved:  make(chan struct{}),
	}

	c.mu.Lock()
	c.nextHandle++
	entry.handle = c.nextHandle
	entry.deadline = time.Now().Add(timeout)
	if !c.closed {
		c.expectations = append(c.expectations, entry)
	}
	c.mu.Unlock()

	c.logger.Debug().
		Uint64("handle", uint64(entry.handle)).
		Str("event_type", string(eventType)).
		Dur("timeout", timeout).
		Msg("expectation registered")

	return entry.handle
}

// UnexpectEvent cancels the expectation identified by handle, resolving
// its waiters with ErrExpectCanceled. Unknown or already-resolved
// handles are a no-op.
func (c *client) UnexpectEvent(h Handle) {
	c.mu.Lock()
	entry := c.removeExpectationLocked(h)
	c.mu.Unlock()
	if entry == nil {
		return
	}

	entry.result = waitResult{err: errors.ErrExpectCanceled}
	close(entry.resolved)

	c.logger.Debug().Uint64("handle", uint64(h)).Msg("expectation canceled")
}

// WaitEvent blocks until the expectation identified by handle resolves,
// returning the matched event. Expectations matched before WaitEvent is
// called keep their result available until their deadline passes, so the
// usual register, trigger, wait sequence cannot lose an event that
// arrived early. WaitEvent fails with ErrNoSuchExpectation when the
// handle was never registered, was canceled, or has already timed out:
// it joins a registration created by ExpectEvent, it never creates one.
// Canceling the context unregisters the expectation and returns the
// context's error.
func (c *client) WaitEvent(ctx context.Context, h Handle) (*Event, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.ErrClientClosed
	}
	entry := c.findExpectationLocked(h)
	c.mu.Unlock()

	if entry == nil {
		return nil, errors.ErrNoSuchExpectation
	}
	return c.waitOn(ctx, entry)
}

// findExpectationLocked returns the pending or match-resolved entry with
// the given handle, or nil. Callers must hold c.mu.
func (c *client) findExpectationLocked(h Handle) *expectation {
	for _, e := range c.expectations {
		if e.handle == h {
			return e
		}
	}
	for _, e := range c.resolvedExpectations {
		if e.handle == h {
			return e
		}
	}
	return nil
}

// WaitExpectedEvent joins the first registered expectation matched by the
// given criteria, using the same subset rule applied to live events, and
// waits for it. It fails immediately with ErrNoSuchExpectation when no
// matching expectation is registered.
//
// This is a compatibility shim for callers that do not track handles.
// New code should keep the handle returned by ExpectEvent and call
// WaitEvent.
func (c *client) WaitExpectedEvent(ctx context.Context, eventType EventType, params map[string]any) (*Event, error) {
	candidate := &Event{Type: eventType, Params: params}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.ErrClientClosed
	}
	var entry *expectation
	for _, e := range c.expectations {
		if e.matches(candidate) {
			entry = e
			break
		}
	}
	if entry == nil {
		for _, e := range c.resolvedExpectations {
			if e.matches(candidate) {
				entry = e
				break
			}
		}
	}
	c.mu.Unlock()

	if entry == nil {
		return nil, errors.ErrNoSuchExpectation
	}
	return c.waitOn(ctx, entry)
}

// waitOn waits for the entry to resolve or the context to end, whichever
// comes first. Context cancellation unregisters the entry so it does not
// linger until the sweep.
func (c *client) waitOn(ctx context.Context, entry *expectation) (*Event, error) {
	select {
	case <-entry.resolved:
	case <-ctx.Done():
		c.UnexpectEvent(entry.handle)
		<-entry.resolved
		if errors.IsExpectCanceled(entry.result.err) {
			return nil, ctx.Err()
		}
	}
	return entry.result.event, entry.result.err
}

// matchExpectation resolves the first registered expectation satisfied by
// the event, if any, and marks the event as expected. The entry moves
// from the pending list to the resolved list in one locked step, so a
// second identical event cannot resolve it again, while late waiters can
// still pick up the result until the entry's deadline passes.
func (c *client) matchExpectation(ev *Event) {
	c.mu.Lock()
	var matched *expectation
	for i, entry := range c.expectations {
		if entry.matches(ev) {
			matched = entry
			c.expectations = append(c.expectations[:i], c.expectations[i+1:]...)
			c.resolvedExpectations = append(c.resolvedExpectations, entry)
			break
		}
	}
	c.mu.Unlock()

	if matched == nil {
		return
	}
	ev.Expected = true
	matched.result = waitResult{event: ev.Clone()}
	close(matched.resolved)

	c.logger.Debug().
		Uint64("handle", uint64(matched.handle)).
		Str("event_type", string(ev.Type)).
		Msg("expectation resolved")
}

// sweepExpired resolves every pending expectation whose deadline has
// passed with a timeout error, and drops resolved entries whose results
// were never picked up. Expired entries are removed under the same lock
// that live matching takes, so an entry resolves at most once no matter
// how the sweep and a dispatch interleave.
func (c *client) sweepExpired(now time.Time) {
	c.mu.Lock()
	var expired []*expectation
	if len(c.expectations) > 0 {
		kept := c.expectations[:0]
		for _, entry := range c.expectations {
			if now.After(entry.deadline) {
				expired = append(expired, entry)
			} else {
				kept = append(kept, entry)
			}
		}
		for i := len(kept); i < len(c.expectations); i++ {
			c.expectations[i] = nil
		}
		c.expectations = kept
	}
	if len(c.resolvedExpectations) > 0 {
		kept := c.resolvedExpectations[:0]
		for _, entry := range c.resolvedExpectations {
			if !now.After(entry.deadline) {
				kept = append(kept, entry)
			}
		}
		for i := len(kept); i < len(c.resolvedExpectations); i++ {
			c.resolvedExpectations[i] = nil
		}
		c.resolvedExpectations = kept
	}
	c.mu.Unlock()

	for _, entry := range expired {
		entry.result = waitResult{err: errors.NewExpectTimeoutError(string(entry.eventType), entry.timeout)}
		close(entry.resolved)

		c.logger.Debug().
			Uint64("handle", uint64(entry.handle)).
			Str("event_type", string(entry.eventType)).
			Dur("timeout", entry.timeout).
			Msg("expectation timed out")
	}
}

// sweepLoop expires overdue expectations on a fixed interval until the
// client is closed.
func (c *client) sweepLoop() {
	ticker := time.NewTicker(c.opts.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.sweepExpired(now)
		case <-c.done:
			return
		}
	}
}

// cancelAllExpectations resolves every pending expectation with err and
// drops any unclaimed resolved results.
func (c *client) cancelAllExpectations(err error) {
	c.mu.Lock()
	pending := c.expectations
	c.expectations = nil
	c.resolvedExpectations = nil
	c.mu.Unlock()

	for _, entry := range pending {
		entry.result = waitResult{err: err}
		close(entry.resolved)
	}
}

// removeExpectationLocked removes and returns the entry with the given
// handle, or nil when it is not registered. Callers must hold c.mu.
func (c *client) removeExpectationLocked(h Handle) *expectation {
	for i, entry := range c.expectations {
		if entry.handle == h {
			c.expectations = append(c.expectations[:i], c.expectations[i+1:]...)
			return entry
		}
	}
	return nil
}
