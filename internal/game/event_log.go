package game

import (
	"fmt"
	"strings"
)

// EventLogEntry is one recorded engine event.
type EventLogEntry struct {
	Tick   int     // step counter at the time of the event
	Kind   string  // reset, spawn, evict, cull, hit, survive
	Detail string  // human-readable detail
	NumVal float64 // optional numeric value
}

// String formats the entry as a fixed-width log line.
//
//	[T=0135] hit      bullet (495.0,500.0)
func (e EventLogEntry) String() string {
	return fmt.Sprintf("[T=%04d] %-8s %s", e.Tick, e.Kind, e.Detail)
}

// EventLog collects structured engine events. It is unbounded, so it is
// meant for tests and short debugging runs, not full training sessions.
type EventLog struct {
	entries []EventLogEntry
	verbose bool
}

// NewEventLog creates an EventLog. If verbose is true, per-bullet spawn and
// cull events are also recorded.
func NewEventLog(verbose bool) *EventLog {
	return &EventLog{verbose: verbose}
}

// Add records a new entry.
func (el *EventLog) Add(tick int, kind, detail string, numVal float64) {
	if el == nil {
		return
	}
	el.entries = append(el.entries, EventLogEntry{
		Tick:   tick,
		Kind:   kind,
		Detail: detail,
		NumVal: numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (el *EventLog) AddVerbose(tick int, kind, detail string, numVal float64) {
	if el == nil || !el.verbose {
		return
	}
	el.Add(tick, kind, detail, numVal)
}

// Entries returns all recorded entries.
func (el *EventLog) Entries() []EventLogEntry {
	return el.entries
}

// Filter returns entries of the given kind.
func (el *EventLog) Filter(kind string) []EventLogEntry {
	var out []EventLogEntry
	for _, e := range el.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many entries match kind.
func (el *EventLog) Count(kind string) int {
	return len(el.Filter(kind))
}

// FirstOf returns the earliest entry of the given kind, or false if none.
func (el *EventLog) FirstOf(kind string) (EventLogEntry, bool) {
	for _, e := range el.entries {
		if e.Kind == kind {
			return e, true
		}
	}
	return EventLogEntry{}, false
}

// Format returns the full log as a single string for t.Log output.
func (el *EventLog) Format() string {
	var sb strings.Builder
	for _, e := range el.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
