package relay

import (
	"sync"
	"time"
)

// EntryKind classifies a diagnostics entry.
type EntryKind string

const (
	EntrySent     EntryKind = "sent"
	EntryReceived EntryKind = "received"
	EntryError    EntryKind = "error"
)

// Entry is one recorded wire event.
type Entry struct {
	Kind   EntryKind `json:"kind"`
	Name   string    `json:"name,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// DiagnosticsSink keeps the most recent wire activity in a fixed-size ring
// so long sessions cannot grow it without bound. Safe for concurrent use;
// a nil sink silently discards everything.
type DiagnosticsSink struct {
	mu   sync.Mutex
	buf  []Entry
	next int
	full bool
}

// NewDiagnosticsSink allocates a sink holding the last capacity entries;
// capacity <= 0 selects the default of 100.
func NewDiagnosticsSink(capacity int) *DiagnosticsSink {
	if capacity <= 0 {
		capacity = 100
	}
	return &DiagnosticsSink{buf: make([]Entry, capacity)}
}

// Record appends one event, evicting the oldest when full.
func (d *DiagnosticsSink) Record(kind EntryKind, name, detail string, at time.Time) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf[d.next] = Entry{Kind: kind, Name: name, Detail: detail, At: at}
	d.next = (d.next + 1) % len(d.buf)
	if d.next == 0 {
		d.full = true
	}
}

// Entries returns a copy of the recorded events, oldest first.
func (d *DiagnosticsSink) Entries() []Entry {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.full {
		out := make([]Entry, d.next)
		copy(out, d.buf[:d.next])
		return out
	}
	out := make([]Entry, 0, len(d.buf))
	out = append(out, d.buf[d.next:]...)
	out = append(out, d.buf[:d.next]...)
	return out
}

// Last returns the most recent entry of the given kind.
func (d *DiagnosticsSink) Last(kind EntryKind) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.next
	total := n
	if d.full {
		total = len(d.buf)
	}
	for i := 0; i < total; i++ {
		idx := ((n-1-i)%len(d.buf) + len(d.buf)) % len(d.buf)
		if d.buf[idx].Kind == kind {
			return d.buf[idx], true
		}
	}
	return Entry{}, false
}
