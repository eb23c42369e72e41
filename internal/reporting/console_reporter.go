package reporting

import (
	"time"

	"stackctl/pkg/logging"
)

// ConsoleReporter logs events through pkg/logging. Severity follows the
// event type: failures log as errors, degradations and rollbacks as
// warnings, everything else as info.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// Report implements Reporter.
func (c *ConsoleReporter) Report(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	subsystem := "Installer"
	if event.Step != "" {
		subsystem = "Installer-" + event.Step
	}

	switch event.Type {
	case EventTypeStepFailed, EventTypeInstallFailed, EventTypeRollbackFailed:
		logging.Error(subsystem, event.Err, "%s", event.String())
	case EventTypeServiceDegraded, EventTypeRollbackStarted, EventTypeRollbackAction, EventTypeStepRetrying:
		logging.Warn(subsystem, "%s", event.String())
	default:
		logging.Info(subsystem, "%s", event.String())
	}
}

// Recorder collects every reported event in order. It exists for tests and
// for callers that want to present a post-run summary.
type Recorder struct {
	Events []Event
}

// Report implements Reporter.
func (r *Recorder) Report(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	r.Events = append(r.Events, event)
}

// ByType returns the recorded events of one type, in order.
func (r *Recorder) ByType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
