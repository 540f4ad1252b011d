package dataset

import (
	"fmt"
)

// EventChange is emitted by a syncable dataset after every successful mutation.
const EventChange = "change"

// DeltaType is the kind of a row change.
type DeltaType string

const (
	Added    DeltaType = "Added"
	Deleted  DeltaType = "Deleted"
	Updated  DeltaType = "Updated"
	Replaced DeltaType = "Replaced"
)

// Delta registers a change on a row. For Replaced the whole content changed and ID is zero.
type Delta struct {
	Type DeltaType
	ID   RowID
}

// Event is passed to handlers. Name and Source are filled in by Trigger.
type Event struct {
	Name   string
	Source *Dataset
	Deltas []Delta
}

// Handler processes an event. A non-nil error stops the dispatch.
type Handler func(Event) error

// Binding identifies a bound handler, pass it to Unbind to remove the handler.
type Binding struct {
	event string
	id    uint64
}

type binding struct {
	id      uint64
	handler Handler
}

// Bind registers a handler for an event. Handlers are called in binding order.
func (d *Dataset) Bind(event string, handler Handler) (Binding, error) {
	if !d.syncable {
		return Binding{}, fmt.Errorf("%w: cannot bind to %q on %s", ErrNotSyncable, event, d.name)
	}

	d.nextBinding++
	b := binding{id: d.nextBinding, handler: handler}
	d.handlers[event] = append(d.handlers[event], b)

	d.log.V(4).Info("handler bound", "event", event, "binding", b.id)
	return Binding{event: event, id: b.id}, nil
}

// Unbind removes a handler. Unbinding twice is a no-op.
func (d *Dataset) Unbind(b Binding) {
	hs := d.handlers[b.event]
	for i := range hs {
		if hs[i].id != b.id {
			continue
		}
		// copy so that a dispatch in progress keeps its own handler list
		rest := make([]binding, 0, len(hs)-1)
		rest = append(rest, hs[:i]...)
		rest = append(rest, hs[i+1:]...)
		if len(rest) == 0 {
			delete(d.handlers, b.event)
		} else {
			d.handlers[b.event] = rest
		}
		d.log.V(4).Info("handler unbound", "event", b.event, "binding", b.id)
		return
	}
}

// Trigger calls the handlers bound to an event synchronously, in binding order, and returns the
// first handler error.
func (d *Dataset) Trigger(event string, e Event) error {
	e.Name = event
	e.Source = d

	for _, b := range d.handlers[event] {
		if err := b.handler(e); err != nil {
			return fmt.Errorf("event %q on %s: %w", event, d.name, err)
		}
	}
	return nil
}

// notify emits the change event on syncable datasets.
func (d *Dataset) notify(deltas ...Delta) error {
	if !d.syncable {
		return nil
	}
	return d.Trigger(EventChange, Event{Deltas: deltas})
}
