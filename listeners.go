package qtoggleserver

// Compile-time interface check to ensure proper implementation.
var _ Subscriber = (*client)(nil)

// EventFunc is called with a clone of every dispatched event.
type EventFunc func(*Event)

// Subscriber manages always-on event listeners.
type Subscriber interface {

	// AddEventListener registers a listener invoked with a clone of
	// every dispatched event.
	AddEventListener(fn EventFunc) ListenerID

	// RemoveEventListener removes a registered listener.
	RemoveEventListener(id ListenerID)
}

// ListenerID identifies a registered event listener.
type ListenerID uint64

// eventListener is one always-on subscriber record.
type eventListener struct {
	id ListenerID
	fn EventFunc
}

// AddEventListener registers a listener invoked with every dispatched
// event, expected or not, in registration order. The listener receives
// its own clone of each event and may mutate it freely. The returned id
// removes the registration.
func (c *client) AddEventListener(fn EventFunc) ListenerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextListenerID++
	c.listeners = append(c.listeners, eventListener{id: c.nextListenerID, fn: fn})
	return c.nextListenerID
}

// RemoveEventListener removes the listener registered under id. Unknown
// ids are a no-op.
func (c *client) RemoveEventListener(id ListenerID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// notifyListeners fans the event out to all registered listeners. Each
// listener gets an independent clone and runs isolated: a panicking
// listener is logged and the remaining listeners still run.
func (c *client) notifyListeners(ev *Event) {
	c.mu.Lock()
	subs := make([]eventListener, len(c.listeners))
	copy(subs, c.listeners)
	c.mu.Unlock()

	for _, sub := range subs {
		c.callListener(sub, ev.Clone())
	}
}

func (c *client) callListener(sub eventListener, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Uint64("listener_id", uint64(sub.id)).
				Str("event_type", string(ev.Type)).
				Interface("panic", r).
				Msg("event listener panicked")
		}
	}()
	sub.fn(ev)
}
