package contentstore

import (
	"context"

	"github.com/google/uuid"
)

// StoreEvent is the base carrier for store lifecycle events. It holds the
// originating source (never nil) and the ContentStore that raised the event.
// Events are immutable after construction and discarded after dispatch.
type StoreEvent struct {
	source interface{}
	store  ContentStore
}

// NewStoreEvent constructs a StoreEvent. The source must be non-nil; the
// store reference may be nil when the event does not originate from a
// content operation.
func NewStoreEvent(source interface{}, store ContentStore) StoreEvent {
	if source == nil {
		panic("contentstore: event source must not be nil")
	}
	return StoreEvent{source: source, store: store}
}

// Source returns the object the event originated from
func (e StoreEvent) Source() interface{} { return e.source }

// Store returns the ContentStore that raised the event, exactly as passed
// at construction
func (e StoreEvent) Store() ContentStore { return e.store }

// Content lifecycle events. Before* events are dispatched ahead of the
// operation; a sink error aborts it. After* events are dispatched once the
// operation succeeded; sink errors are logged and swallowed.

// BeforeSetContentEvent is raised before content bytes are written
type BeforeSetContentEvent struct {
	StoreEvent
	ResourceID uuid.UUID
}

// AfterSetContentEvent is raised after content bytes were written
type AfterSetContentEvent struct {
	StoreEvent
	ResourceID   uuid.UUID
	BytesWritten int64
}

// BeforeGetContentEvent is raised before content bytes are read
type BeforeGetContentEvent struct {
	StoreEvent
	ResourceID uuid.UUID
}

// AfterGetContentEvent is raised after a content read stream was opened
type AfterGetContentEvent struct {
	StoreEvent
	ResourceID uuid.UUID
}

// BeforeUnsetContentEvent is raised before content bytes are removed
type BeforeUnsetContentEvent struct {
	StoreEvent
	ResourceID uuid.UUID
}

// AfterUnsetContentEvent is raised after content bytes were removed
type AfterUnsetContentEvent struct {
	StoreEvent
	ResourceID uuid.UUID
}

// BeforeAssociateEvent is raised before an association is created
type BeforeAssociateEvent struct {
	StoreEvent
	Ref        EntityRef
	ResourceID uuid.UUID
}

// AfterAssociateEvent is raised after an association was created
type AfterAssociateEvent struct {
	StoreEvent
	Association *Association
}

// BeforeUnassociateEvent is raised before an association is removed
type BeforeUnassociateEvent struct {
	StoreEvent
	Ref EntityRef
}

// AfterUnassociateEvent is raised after an association was removed
type AfterUnassociateEvent struct {
	StoreEvent
	Ref EntityRef
}

// EventSink receives store lifecycle events
type EventSink interface {
	BeforeSetContent(ctx context.Context, e BeforeSetContentEvent) error
	AfterSetContent(ctx context.Context, e AfterSetContentEvent) error
	BeforeGetContent(ctx context.Context, e BeforeGetContentEvent) error
	AfterGetContent(ctx context.Context, e AfterGetContentEvent) error
	BeforeUnsetContent(ctx context.Context, e BeforeUnsetContentEvent) error
	AfterUnsetContent(ctx context.Context, e AfterUnsetContentEvent) error
	BeforeAssociate(ctx context.Context, e BeforeAssociateEvent) error
	AfterAssociate(ctx context.Context, e AfterAssociateEvent) error
	BeforeUnassociate(ctx context.Context, e BeforeUnassociateEvent) error
	AfterUnassociate(ctx context.Context, e AfterUnassociateEvent) error
}

// MultiSink fans events out to several sinks in order. The first error from
// a Before* handler stops the fan-out; After* handlers all run and the first
// error is returned.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink creates a sink that dispatches to all given sinks
func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) BeforeSetContent(ctx context.Context, e BeforeSetContentEvent) error {
	for _, s := range m.sinks {
		if err := s.BeforeSetContent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) AfterSetContent(ctx context.Context, e AfterSetContentEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.AfterSetContent(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) BeforeGetContent(ctx context.Context, e BeforeGetContentEvent) error {
	for _, s := range m.sinks {
		if err := s.BeforeGetContent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) AfterGetContent(ctx context.Context, e AfterGetContentEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.AfterGetContent(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) BeforeUnsetContent(ctx context.Context, e BeforeUnsetContentEvent) error {
	for _, s := range m.sinks {
		if err := s.BeforeUnsetContent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) AfterUnsetContent(ctx context.Context, e AfterUnsetContentEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.AfterUnsetContent(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) BeforeAssociate(ctx context.Context, e BeforeAssociateEvent) error {
	for _, s := range m.sinks {
		if err := s.BeforeAssociate(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) AfterAssociate(ctx context.Context, e AfterAssociateEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.AfterAssociate(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) BeforeUnassociate(ctx context.Context, e BeforeUnassociateEvent) error {
	for _, s := range m.sinks {
		if err := s.BeforeUnassociate(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) AfterUnassociate(ctx context.Context, e AfterUnassociateEvent) error {
	var first error
	for _, s := range m.sinks {
		if err := s.AfterUnassociate(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
