// Package notify defines the user-facing notification capability used by the
// gateway, the session manager, and the todo controller.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Kind classifies a notification for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notification is a single message surfaced to the user.
type Notification struct {
	Kind      Kind
	Message   string
	CreatedAt time.Time
}

// Notifier delivers notifications to whatever displays them.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Func adapts a plain function to the Notifier interface.
type Func func(kind Kind, message string)

// Notify calls f.
func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Discard drops every notification.
var Discard Notifier = Func(func(Kind, string) {})

// OrDiscard returns n, or Discard when n is nil.
func OrDiscard(n Notifier) Notifier {
	if n == nil {
		return Discard
	}
	return n
}

// Recorder keeps every notification in memory. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records the notification.
func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Kind: kind, Message: message, CreatedAt: time.Now()})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Messages returns the recorded messages of the given kind.
func (r *Recorder) Messages(kind Kind) []string {
	var out []string
	for _, n := range r.All() {
		if n.Kind == kind {
			out = append(out, n.Message)
		}
	}
	return out
}

// Reset forgets all recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// Writer prints notifications as lines, e.g. to stderr for CLI commands.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format func(Kind, string) string
}

// NewWriter returns a Writer printing to w. format may be nil.
func NewWriter(w io.Writer, format func(Kind, string) string) *Writer {
	if format == nil {
		format = func(k Kind, msg string) string { return fmt.Sprintf("[%s] %s", k, msg) }
	}
	return &Writer{w: w, format: format}
}

// Notify writes one formatted line.
func (w *Writer) Notify(kind Kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.w, w.format(kind, message))
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify forwards to every non-nil notifier.
func (m Multi) Notify(kind Kind, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(kind, message)
		}
	}
}
