// Package sync carries events raised on worker goroutines (notifications
// from the gateway and controller, session changes from the manager) into
// the Bubble Tea event loop.
package sync

import (
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todoctl/internal/notify"
	"github.com/nhle/todoctl/internal/session"
)

// NotificationMsg is a tea.Msg carrying one user-facing notification.
type NotificationMsg struct {
	notify.Notification
}

// SessionMsg is a tea.Msg sent whenever the session state changes.
type SessionMsg struct {
	State session.State
}

// defaultBuffer is the number of events held before new ones are dropped.
const defaultBuffer = 32

// Relay buffers events for the Bubble Tea runtime. Sends never block the
// goroutine raising the event; when the buffer is full the event is
// dropped. Relay implements notify.Notifier.
type Relay struct {
	eventCh chan tea.Msg
	stopCh  chan struct{}
	mu      gosync.Mutex
	stopped bool
	unsubs  []func()
}

// New creates a relay holding up to size pending events.
func New(size int) *Relay {
	if size <= 0 {
		size = defaultBuffer
	}
	return &Relay{
		eventCh: make(chan tea.Msg, size),
		stopCh:  make(chan struct{}),
	}
}

// Notify queues a notification without blocking.
func (r *Relay) Notify(kind notify.Kind, message string) {
	r.send(NotificationMsg{notify.Notification{
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}})
}

// Watch subscribes to the session manager's state changes until Stop.
func (r *Relay) Watch(m *session.Manager) {
	cancel := m.Subscribe(func(s session.State) {
		r.send(SessionMsg{State: s})
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		cancel()
		return
	}
	r.unsubs = append(r.unsubs, cancel)
}

// send delivers msg on the event channel without blocking.
func (r *Relay) send(msg tea.Msg) {
	select {
	case <-r.stopCh:
		return
	default:
	}

	select {
	case r.eventCh <- msg:
	default:
		// Channel full; drop rather than block the caller.
	}
}

// Start returns a tea.Cmd that waits for the first event.
func (r *Relay) Start() tea.Cmd {
	return r.waitForEvent()
}

// Stop detaches from the session manager and releases any waiting command.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	for _, cancel := range r.unsubs {
		cancel()
	}
	r.unsubs = nil
	close(r.stopCh)
}

// waitForEvent returns a tea.Cmd that blocks until the next event arrives
// or the relay stops.
func (r *Relay) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-r.stopCh:
			return nil
		default:
		}

		select {
		case msg := <-r.eventCh:
			return msg
		case <-r.stopCh:
			return nil
		}
	}
}

// WaitForNextEvent returns a tea.Cmd that waits for the next event.
// Call it after handling a NotificationMsg or SessionMsg to keep
// listening.
func (r *Relay) WaitForNextEvent() tea.Cmd {
	return r.waitForEvent()
}
