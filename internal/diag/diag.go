// Package diag collects the ordered diagnostic events produced during one
// ingestion run. Events are the user-facing error channel; they are never
// persisted.
package diag

import "fmt"

// Severity classifies a diagnostic event.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
	// Excerpt carries a raw markup excerpt for debugging unknown page structures.
	Excerpt Severity = "code"
)

// Event is a single (severity, message) pair.
type Event struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Log is an append-only, ordered sequence of events. The zero value is ready
// to use. A Log is not safe for concurrent use.
type Log struct {
	events []Event
}

func (l *Log) add(sev Severity, msg string) {
	l.events = append(l.events, Event{Severity: sev, Message: msg})
}

// Info appends an info event with a constant message.
func (l *Log) Info(msg string) { l.add(Info, msg) }

// Warn appends a warning event with a constant message.
func (l *Log) Warn(msg string) { l.add(Warning, msg) }

// Infof appends an info event.
func (l *Log) Infof(format string, args ...any) { l.add(Info, fmt.Sprintf(format, args...)) }

// Successf appends a success event.
func (l *Log) Successf(format string, args ...any) { l.add(Success, fmt.Sprintf(format, args...)) }

// Warnf appends a warning event.
func (l *Log) Warnf(format string, args ...any) { l.add(Warning, fmt.Sprintf(format, args...)) }

// Errorf appends an error event.
func (l *Log) Errorf(format string, args ...any) { l.add(Error, fmt.Sprintf(format, args...)) }

// Excerpt appends a debug excerpt verbatim.
func (l *Log) Excerpt(markup string) { l.add(Excerpt, markup) }

// Events returns a copy of the accumulated events in emission order.
func (l *Log) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of accumulated events.
func (l *Log) Len() int { return len(l.events) }

// Count returns how many events have the given severity.
func (l *Log) Count(sev Severity) int {
	n := 0
	for _, e := range l.events {
		if e.Severity == sev {
			n++
		}
	}
	return n
}
