package qtoggleserver

// EventType identifies the kind of change a server event reports.
type EventType string

// Event types pushed by the server on the listen channel.
const (
	// ValueChange reports a new value on a port.
	ValueChange EventType = "value-change"

	// PortUpdate reports a change to a port's attributes.
	PortUpdate EventType = "port-update"

	// PortAdd reports a newly added port.
	PortAdd EventType = "port-add"

	// PortRemove reports a removed port.
	PortRemove EventType = "port-remove"

	// DeviceUpdate reports a change to the device's attributes.
	DeviceUpdate EventType = "device-update"

	// SlaveDeviceAdd reports a slave device attached to the master.
	SlaveDeviceAdd EventType = "slave-device-add"

	// SlaveDeviceUpdate reports a change to a slave device.
	SlaveDeviceUpdate EventType = "slave-device-update"

	// SlaveDeviceRemove reports a slave device detached from the master.
	SlaveDeviceRemove EventType = "slave-device-remove"

	// FullUpdate asks the client to reload all state from the server.
	FullUpdate EventType = "full-update"
)

// Event is a single notification received from (or injected into) the
// client. Type and Params mirror the wire shape of the listen response;
// Expected and Fake are local dispatch annotations.
type Event struct {
	// Type identifies the kind of change, e.g. "port-update".
	Type EventType `json:"type" yaml:"type"`

	// Params carries the event payload. Keys depend on the event type.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Expected is set when the event satisfied a registered expectation.
	Expected bool `json:"-" yaml:"-"`

	// Fake is set when the event was synthesized locally via FakeEvent
	// rather than received from the server.
	Fake bool `json:"-" yaml:"-"`
}

// NewEvent creates an event with its own deep copy of params, so later
// changes to the caller's map do not affect the event.
func NewEvent(eventType EventType, params map[string]any) *Event {
	return &Event{
		Type:   eventType,
		Params: deepCopyParams(params),
	}
}

// Clone returns an independent deep copy of the event. Every listener
// receives its own clone, so one subscriber mutating the payload cannot
// affect another.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Params = deepCopyParams(e.Params)
	return &clone
}

// deepCopyParams copies a params map including nested maps and slices.
// Scalar values are shared, which is safe since they are immutable.
func deepCopyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	copied := make(map[string]any, len(params))
	for k, v := range params {
		copied[k] = deepCopyValue(v)
	}
	return copied
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyParams(val)
	case []any:
		copied := make([]any, len(val))
		for i, item := range val {
			copied[i] = deepCopyValue(item)
		}
		return copied
	default:
		return v
	}
}
