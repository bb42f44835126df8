package scanflow

import (
	"fmt"
	"slices"
	"sync"

	"github.com/oshokin/receipt-scan/internal/domain/receipt"
)

// transitions lists the allowed edges. Reset is handled separately because
// cancel and close are valid from every state.
//
//nolint:gochecknoglobals // Static transition table.
var transitions = map[Kind][]Kind{
	KindIdle:           {KindCameraLoading},
	KindCameraLoading:  {KindScanning},
	KindScanning:       {KindSubmitting},
	KindSubmitting:     {KindSubmitting, KindSuccess, KindRetryingPortal, KindFailedTerminal, KindScanning},
	KindRetryingPortal: {KindSubmitting},
	KindFailedTerminal: {KindCameraLoading},
	KindSuccess:        {KindCameraLoading},
}

// CanTransition reports whether the flow may move from one kind to another
// through a regular (non-reset) transition.
func CanTransition(from, to Kind) bool {
	for _, k := range transitions[from] {
		if k == to {
			return true
		}
	}

	return false
}

// Machine is the single source of truth for a scan session's state.
// Only the session and the retry orchestrator drive it; other callers read
// the state or subscribe to changes.
type Machine struct {
	// state is the current variant.
	state State
	// subscribers receive every new state.
	subscribers map[int]func(State)
	// nextID numbers subscriptions.
	nextID int
	// mu protects the fields above.
	mu sync.RWMutex
}

// NewMachine returns a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{
		state:       Idle{},
		subscribers: make(map[int]func(State)),
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// RetryMeta returns the pending retry metadata while retrying.
func (m *Machine) RetryMeta() (RetryMeta, bool) {
	return MetaOf(m.Current())
}

// Subscribe registers fn for every subsequent state change and returns a
// function that removes it. fn runs synchronously on the goroutine that
// performed the transition and must not call back into the machine's
// mutating methods.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.subscribers, id)
	}
}

// Open starts (or restarts after a terminal state) a session.
func (m *Machine) Open() error {
	return m.transition(CameraLoading{})
}

// Ready marks the camera as ready and starts scanning.
func (m *Machine) Ready() error {
	return m.transition(Scanning{})
}

// CodeFound moves to Submitting while the decoded code is being validated.
// Only a scanning session accepts a code, so a running submission cannot be
// restarted.
func (m *Machine) CodeFound() error {
	return m.transition(Submitting{}, KindScanning)
}

// Reject returns to Scanning with a recoverable input notice.
func (m *Machine) Reject(notice error) error {
	return m.transition(Scanning{Notice: notice})
}

// Attempt marks the start of creation attempt n.
func (m *Machine) Attempt(n int) error {
	return m.transition(Submitting{Attempt: n})
}

// Retrying publishes the retry metadata before a wait begins.
func (m *Machine) Retrying(meta RetryMeta) error {
	return m.transition(RetryingPortal{Meta: meta})
}

// Succeed records the created receipt.
func (m *Machine) Succeed(r *receipt.Receipt) error {
	return m.transition(Success{Receipt: r.Clone()})
}

// Fail records a terminal failure with a user-facing reason.
func (m *Machine) Fail(reason string, err error) error {
	return m.transition(FailedTerminal{Reason: reason, Err: err})
}

// Reset returns to Idle from any state. err, when set, is the recoverable
// error surfaced to the user (for example RETRY_CANCELLED).
func (m *Machine) Reset(err error) {
	m.set(Idle{Err: err})
}

// transition applies a regular transition or returns ErrInvalidTransition.
// When sources are given the current state must also be one of them.
func (m *Machine) transition(next State, sources ...Kind) error {
	m.mu.Lock()

	from := m.state.Kind()
	if !CanTransition(from, next.Kind()) || (len(sources) > 0 && !slices.Contains(sources, from)) {
		m.mu.Unlock()

		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next.Kind())
	}

	m.state = next
	subscribers := m.snapshotSubscribers()
	m.mu.Unlock()

	notify(subscribers, next)

	return nil
}

// set stores next unconditionally.
func (m *Machine) set(next State) {
	m.mu.Lock()
	m.state = next
	subscribers := m.snapshotSubscribers()
	m.mu.Unlock()

	notify(subscribers, next)
}

// snapshotSubscribers copies the subscriber list. Callers hold mu.
func (m *Machine) snapshotSubscribers() []func(State) {
	out := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		out = append(out, fn)
	}

	return out
}

func notify(subscribers []func(State), s State) {
	for _, fn := range subscribers {
		fn(s)
	}
}
