package qtoggleserver

import (
	"context"
	"testing"
	"time"

	"github.com/rajtan/qtoggleserver/pkg/errors"
)

func TestExpectEventResolvedByMatchingEvent(t *testing.T) {
	c := newTestClient(t)

	h := c.ExpectEvent(PortUpdate, map[string]any{"id": "p1"}, time.Minute)
	c.FakeEvent(PortUpdate, map[string]any{"id": "p1", "value": 42})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, err := c.WaitEvent(ctx, h)
	if err != nil {
		t.Fatalf("Failed to wait for event: %v", err)
	}
	if ev.Type != PortUpdate {
		t.Errorf("Expected type %q, got %q", PortUpdate, ev.Type)
	}
	if !ev.Expected {
		t.Error("Expected the expected flag to be set")
	}
	if !ev.Fake {
		t.Error("Expected the fake flag to be set")
	}
	if ev.Params["value"] != 42 {
		t.Errorf("Expected value 42, got %v", ev.Params["value"])
	}

	// A second identical event finds nothing left to resolve, and the
	// first result sticks.
	c.FakeEvent(PortUpdate, map[string]any{"id": "p1", "value": 43})

	again, err := c.WaitEvent(ctx, h)
	if err != nil {
		t.Fatalf("Failed to re-read the resolved result: %v", err)
	}
	if again.Params["value"] != 42 {
		t.Errorf("Expected the first event to stick, got value %v", again.Params["value"])
	}
}

func TestExpectEventSubsetMatching(t *testing.T) {
	tests := []struct {
		name         string
		expectType   EventType
		expectParams map[string]any
		eventType    EventType
		eventParams  map[string]any
		matched      bool
	}{
		{
			name:       "exact match",
			expectType: PortUpdate, expectParams: map[string]any{"id": "p1"},
			eventType: PortUpdate, eventParams: map[string]any{"id": "p1"},
			matched: true,
		},
		{
			name:       "extra event keys ignored",
			expectType: PortUpdate, expectParams: map[string]any{"id": "p1"},
			eventType: PortUpdate, eventParams: map[string]any{"id": "p1", "value": 1},
			matched: true,
		},
		{
			name:       "missing key",
			expectType: PortUpdate, expectParams: map[string]any{"id": "p1"},
			eventType: PortUpdate, eventParams: map[string]any{"value": 1},
			matched: false,
		},
		{
			name:       "different value",
			expectType: PortUpdate, expectParams: map[string]any{"id": "p1"},
			eventType: PortUpdate, eventParams: map[string]any{"id": "p2"},
			matched: false,
		},
		{
			name:       "different type",
			expectType: PortUpdate, expectParams: map[string]any{"id": "p1"},
			eventType: PortRemove, eventParams: map[string]any{"id": "p1"},
			matched: false,
		},
		{
			name:       "wildcard type",
			expectType: "", expectParams: nil,
			eventType: SlaveDeviceAdd, eventParams: map[string]any{"name": "extension1"},
			matched: true,
		},
		{
			name:       "empty params match anything",
			expectType: PortAdd, expectParams: nil,
			eventType: PortAdd, eventParams: map[string]any{"id": "p9"},
			matched: true,
		},
		{
			name:       "nested params compared deeply",
			expectType: PortUpdate, expectParams: map[string]any{"attrs": map[string]any{"min": 0}},
			eventType: PortUpdate, eventParams: map[string]any{"id": "p1", "attrs": map[string]any{"min": 0}},
			matched: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			c.ExpectEvent(tt.expectType, tt.expectParams, time.Minute)

			ev := NewEvent(tt.eventType, tt.eventParams)
			c.matchExpectation(ev)

			if ev.Expected != tt.matched {
				t.Errorf("Expected matched=%v, got %v", tt.matched, ev.Expected)
			}
		})
	}
}

func TestExpectEventFirstMatchWins(t *testing.T) {
	c := newTestClient(t)

	h1 := c.ExpectEvent(ValueChange, map[string]any{"id": "p1"}, time.Minute)
	h2 := c.ExpectEvent(ValueChange, nil, time.Minute)

	c.FakeEvent(ValueChange, map[string]any{"id": "p1", "value": 1})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.WaitEvent(ctx, h1); err != nil {
		t.Fatalf("Expected the older registration to resolve, got %v", err)
	}

	c.mu.Lock()
	pending := len(c.expectations)
	var remaining Handle
	if pending == 1 {
		remaining = c.expectations[0].handle
	}
	c.mu.Unlock()

	if pending != 1 || remaining != h2 {
		t.Errorf("Expected only the newer registration to stay pending, got %d pending", pending)
	}
}

func TestUnexpectEvent(t *testing.T) {
	c := newTestClient(t)

	h := c.ExpectEvent(PortRemove, nil, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := c.WaitEvent(context.Background(), h)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)

	c.UnexpectEvent(h)

	select {
	case err := <-done:
		if !errors.IsExpectCanceled(err) {
			t.Errorf("Expected cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Waiter was not released by UnexpectEvent")
	}

	// Cancelling again, or cancelling garbage, must be a no-op.
	c.UnexpectEvent(h)
	c.UnexpectEvent(12345)
}

func TestExpectEventTimeout(t *testing.T) {
	c := newTestClient(t, WithSweepInterval(10*time.Millisecond))

	h := c.ExpectEvent(ValueChange, map[string]any{"id": "p1"}, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.WaitEvent(ctx, h)
	if !errors.IsExpectTimeout(err) {
		t.Fatalf("Expected a timeout failure, got %v", err)
	}
	if !errors.IsTimeout(err) {
		t.Error("Expected the timeout to also report as a generic timeout")
	}

	// The registry must no longer know the handle.
	if _, err := c.WaitEvent(ctx, h); !errors.IsNoSuchExpectation(err) {
		t.Errorf("Expected the handle to be gone after expiry, got %v", err)
	}

	c.mu.Lock()
	pending := len(c.expectations)
	c.mu.Unlock()
	if pending != 0 {
		t.Errorf("Expected an empty registry after expiry, got %d entries", pending)
	}
}

func TestExpectEventDefaultTimeout(t *testing.T) {
	c := newTestClient(t,
		WithExpectTimeout(40*time.Millisecond),
		WithSweepInterval(10*time.Millisecond),
	)

	start := time.Now()
	h := c.ExpectEvent(DeviceUpdate, nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.WaitEvent(ctx, h)
	if !errors.IsExpectTimeout(err) {
		t.Fatalf("Expected a timeout failure, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected the configured default timeout to apply, expired after %s", elapsed)
	}
}

func TestSweepAndMatchResolveExactlyOnce(t *testing.T) {
	t.Run("sweep first", func(t *testing.T) {
		c := newTestClient(t)

		c.ExpectEvent(PortAdd, map[string]any{"id": "p1"}, time.Millisecond)
		time.Sleep(5 * time.Millisecond)
		c.sweepExpired(time.Now())

		// A late matching event must find nothing to resolve.
		ev := NewEvent(PortAdd, map[string]any{"id": "p1"})
		c.matchExpectation(ev)
		if ev.Expected {
			t.Error("Expected a late event to find nothing to resolve")
		}
	})

	t.Run("match first", func(t *testing.T) {
		c := newTestClient(t)

		h := c.ExpectEvent(PortAdd, map[string]any{"id": "p2"}, 20*time.Millisecond)
		c.FakeEvent(PortAdd, map[string]any{"id": "p2"})

		time.Sleep(30 * time.Millisecond)
		c.sweepExpired(time.Now())

		// The parked result is evicted once its deadline passes.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := c.WaitEvent(ctx, h); !errors.IsNoSuchExpectation(err) {
			t.Errorf("Expected the parked result to be evicted, got %v", err)
		}
	})
}

func TestWaitEventUnknownHandle(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.WaitEvent(ctx, 999); !errors.IsNoSuchExpectation(err) {
		t.Errorf("Expected no-such-expectation, got %v", err)
	}
}

func TestWaitEventContextCancellation(t *testing.T) {
	c := newTestClient(t)

	h := c.ExpectEvent(ValueChange, nil, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.WaitEvent(ctx, h)
	if err != context.DeadlineExceeded {
		t.Fatalf("Expected the context deadline error, got %v", err)
	}

	// Giving up unregisters the expectation.
	c.mu.Lock()
	pending := len(c.expectations)
	c.mu.Unlock()
	if pending != 0 {
		t.Errorf("Expected the expectation to be unregistered, got %d pending", pending)
	}
}

func TestWaitExpectedEvent(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.WaitExpectedEvent(context.Background(), PortUpdate, nil); !errors.IsNoSuchExpectation(err) {
		t.Fatalf("Expected an immediate failure without a registration, got %v", err)
	}

	c.ExpectEvent(PortUpdate, map[string]any{"id": "p1"}, time.Minute)

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.FakeEvent(PortUpdate, map[string]any{"id": "p1", "value": 7})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ev, err := c.WaitExpectedEvent(ctx, PortUpdate, map[string]any{"id": "p1"})
	if err != nil {
		t.Fatalf("Failed to join the registration: %v", err)
	}
	if !ev.Expected || ev.Params["value"] != 7 {
		t.Errorf("Expected the resolved event, got %+v", ev)
	}
}
