// Package reporting defines the structured event stream the installation
// orchestrator emits. Consumers (console logging, a future TUI pane)
// receive typed events, never preformatted text.
package reporting

import (
	"fmt"
	"time"
)

// EventType defines the type of event.
type EventType string

const (
	// Step lifecycle events
	EventTypeStepStarted   EventType = "step.started"
	EventTypeStepCompleted EventType = "step.completed"
	EventTypeStepFailed    EventType = "step.failed"
	EventTypeStepRetrying  EventType = "step.retrying"

	// Verification events
	EventTypeServiceReady    EventType = "service.ready"
	EventTypeServiceDegraded EventType = "service.degraded"

	// Rollback events
	EventTypeRollbackStarted EventType = "rollback.started"
	EventTypeRollbackAction  EventType = "rollback.action"
	EventTypeRollbackFailed  EventType = "rollback.failed"

	// Run outcome events
	EventTypeInstallCompleted EventType = "install.completed"
	EventTypeInstallFailed    EventType = "install.failed"
)

// Event is one step-transition record. Step names the orchestrator step
// the event belongs to; Service is set for per-service events (readiness,
// image pulls); Attempt counts retries from 1.
type Event struct {
	Type      EventType
	Step      string
	Service   string
	Attempt   int
	Detail    string
	Err       error
	Timestamp time.Time
}

// String returns a human-readable description of the event.
func (e Event) String() string {
	s := string(e.Type)
	if e.Step != "" {
		s += " step=" + e.Step
	}
	if e.Service != "" {
		s += " service=" + e.Service
	}
	if e.Attempt > 0 {
		s += fmt.Sprintf(" attempt=%d", e.Attempt)
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	if e.Err != nil {
		s += fmt.Sprintf(" error=%v", e.Err)
	}
	return s
}

// Reporter consumes installation events.
type Reporter interface {
	Report(event Event)
}
