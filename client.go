// Package qtoggleserver provides a client for the qToggle HTTP API that
// keeps an application synchronized with server-side state changes using
// long-polling, and lets callers expect a specific server event and wait
// for its arrival as part of otherwise fire-and-forget workflows.
//
// The client wraps the raw API with:
// - A long-poll loop with fast reconnect and steady-state retry backoff
// - An expectation registry for awaiting specific events with timeouts
// - Always-on event listeners receiving cloned events
// - Per-cycle sync callbacks reporting poll health
// - Local event injection without a network round trip
//
// Example usage:
//
//	// Create a client and start the poll loop
//	c, err := qtoggleserver.New(qtoggleserver.WithBaseURL("http://192.168.1.2/api"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.StartListening(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Subscribe to all events
//	id := c.AddEventListener(func(ev *qtoggleserver.Event) {
//	    log.Printf("event: %s %v", ev.Type, ev.Params)
//	})
//	defer c.RemoveEventListener(id)
//
//	// Expect a specific event before triggering it, then wait
//	h := c.ExpectEvent(qtoggleserver.ValueChange, map[string]any{"id": "relay1"}, 10*time.Second)
//	// ... send the request that flips relay1 here ...
//	ev, err := c.WaitEvent(ctx, h)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("relay1 changed to %v", ev.Params["value"])
package qtoggleserver

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rajtan/qtoggleserver/internal/transport"
	"github.com/rajtan/qtoggleserver/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client is a qToggle API client that keeps callers synchronized with
// server-side state changes.
type Client interface {

	// Expecter registers and awaits expectations for specific events
	Expecter

	// Subscriber manages always-on event listeners
	Subscriber

	// SyncNotifier manages per-cycle poll outcome callbacks
	SyncNotifier

	// ListenController drives the long-poll loop
	ListenController

	// Faker injects locally synthesized events
	Faker

	// Webhooks reads and writes the server's webhook configuration
	Webhooks

	// Close stops the background machinery and cancels pending
	// expectations.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {

	// opts are the configured options for the client
	opts   *options
	api    *transport.Client
	logger zerolog.Logger

	// sessionID is generated once and reused for every poll cycle
	sessionID string

	// mu guards the registries and the listen state below
	mu sync.Mutex

	// expectation registry: expectations holds pending entries,
	// resolvedExpectations parks matched entries until their deadline so
	// late waiters can still pick up the result
	expectations         []*expectation
	resolvedExpectations []*expectation
	nextHandle           Handle

	// listener registry
	listeners      []eventListener
	nextListenerID ListenerID

	// sync callback registry
	syncCallbacks  []syncCallback
	nextCallbackID CallbackID
	syncCh         chan syncStatus

	// listen state: listenStopCh identifies the current listening
	// generation and is non-nil while listening
	listenStopCh       chan struct{}
	listenTime         time.Time
	listenErrorCount   int
	lastListenError    error
	ignoreListenErrors bool

	// lifecycle
	closed bool
	done   chan struct{}
}

// New creates a new Client for the qToggle server rooted at the given
// base URL. The expectation sweeper and the sync callback dispatcher
// start immediately; the poll loop starts on StartListening.
func New(opts ...Option) (Client, error) {
	options, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if options.baseURL == "" {
		return nil, &errors.ValidationError{
			Field:   "baseURL",
			Value:   "",
			Message: "base URL is required, pass WithBaseURL",
		}
	}

	api, err := transport.New(options.baseURL, options.httpClient)
	if err != nil {
		return nil, err
	}

	sessionID := newSessionID()
	c := &client{
		opts:      options,
		api:       api,
		logger:    options.logger.With().Str("session_id", sessionID).Logger(),
		sessionID: sessionID,
		syncCh:    make(chan syncStatus, syncQueueSize),
		done:      make(chan struct{}),
	}

	go c.sweepLoop()
	go c.syncLoop()

	c.logger.Debug().Str("base_url", api.BaseURL()).Msg("client created")
	return c, nil
}

// Close stops listening, stops the sweeper and the sync dispatcher, and
// resolves every pending expectation with ErrExpectCanceled. Close is
// idempotent. The underlying HTTP client is left alone, callers may
// share it across clients.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stopCh := c.listenStopCh
	c.listenStopCh = nil
	c.listenTime = time.Time{}
	c.mu.Unlock()

	close(c.done)
	if stopCh != nil {
		close(stopCh)
	}
	c.cancelAllExpectations(errors.ErrExpectCanceled)

	c.logger.Debug().Msg("client closed")
	return nil
}
