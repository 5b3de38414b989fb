package contentstore

import (
	"context"
)

// NoopSink is a no-operation implementation of EventSink.
// Useful when no event handling is needed or for testing.
type NoopSink struct{}

// NewNoopSink creates a new no-operation event sink
func NewNoopSink() EventSink {
	return &NoopSink{}
}

func (n *NoopSink) BeforeSetContent(ctx context.Context, e BeforeSetContentEvent) error { return nil }
func (n *NoopSink) AfterSetContent(ctx context.Context, e AfterSetContentEvent) error   { return nil }
func (n *NoopSink) BeforeGetContent(ctx context.Context, e BeforeGetContentEvent) error { return nil }
func (n *NoopSink) AfterGetContent(ctx context.Context, e AfterGetContentEvent) error   { return nil }
func (n *NoopSink) BeforeUnsetContent(ctx context.Context, e BeforeUnsetContentEvent) error {
	return nil
}
func (n *NoopSink) AfterUnsetContent(ctx context.Context, e AfterUnsetContentEvent) error { return nil }
func (n *NoopSink) BeforeAssociate(ctx context.Context, e BeforeAssociateEvent) error     { return nil }
func (n *NoopSink) AfterAssociate(ctx context.Context, e AfterAssociateEvent) error       { return nil }
func (n *NoopSink) BeforeUnassociate(ctx context.Context, e BeforeUnassociateEvent) error { return nil }
func (n *NoopSink) AfterUnassociate(ctx context.Context, e AfterUnassociateEvent) error   { return nil }

// Logger interface for logging events
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger discards all log output
type noopLogger struct{}

func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// LoggingSink is an event sink that logs events but takes no other action.
// Useful for development and debugging.
type LoggingSink struct {
	logger Logger
}

// NewLoggingSink creates a new logging event sink
func NewLoggingSink(logger Logger) EventSink {
	return &LoggingSink{logger: logger}
}

func (l *LoggingSink) BeforeSetContent(ctx context.Context, e BeforeSetContentEvent) error {
	return nil
}

func (l *LoggingSink) AfterSetContent(ctx context.Context, e AfterSetContentEvent) error {
	l.logger.Infof("content set: resource=%s bytes=%d", e.ResourceID, e.BytesWritten)
	return nil
}

func (l *LoggingSink) BeforeGetContent(ctx context.Context, e BeforeGetContentEvent) error {
	return nil
}

func (l *LoggingSink) AfterGetContent(ctx context.Context, e AfterGetContentEvent) error {
	l.logger.Infof("content read: resource=%s", e.ResourceID)
	return nil
}

func (l *LoggingSink) BeforeUnsetContent(ctx context.Context, e BeforeUnsetContentEvent) error {
	return nil
}

func (l *LoggingSink) AfterUnsetContent(ctx context.Context, e AfterUnsetContentEvent) error {
	l.logger.Infof("content unset: resource=%s", e.ResourceID)
	return nil
}

func (l *LoggingSink) BeforeAssociate(ctx context.Context, e BeforeAssociateEvent) error {
	return nil
}

func (l *LoggingSink) AfterAssociate(ctx context.Context, e AfterAssociateEvent) error {
	l.logger.Infof("associated: %s/%s path=%q resource=%s",
		e.Association.EntityType, e.Association.EntityID, e.Association.PropertyPath, e.Association.ResourceID)
	return nil
}

func (l *LoggingSink) BeforeUnassociate(ctx context.Context, e BeforeUnassociateEvent) error {
	return nil
}

func (l *LoggingSink) AfterUnassociate(ctx context.Context, e AfterUnassociateEvent) error {
	l.logger.Infof("unassociated: %s/%s path=%q", e.Ref.EntityType, e.Ref.EntityID, e.Ref.PropertyPath)
	return nil
}
