// file: internal/mcp/state/machine.go
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	lfsm "github.com/looplab/fsm"

	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcperror"
)

// Machine is the lifecycle state machine of one MCP session. It is safe for concurrent use.
type Machine struct {
	mu     sync.Mutex
	fsm    *lfsm.FSM
	logger logging.Logger
}

// NewMachine returns a machine in StateUninitialized.
func NewMachine(logger logging.Logger) *Machine {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	log := logger.WithField("component", "mcp_state_machine")

	live := []string{string(StateUninitialized), string(StateInitializing), string(StateInitialized)}
	events := lfsm.Events{
		{Name: string(EventInitializeRequest), Src: []string{string(StateUninitialized)}, Dst: string(StateInitializing)},
		{Name: string(EventClientInitialized), Src: []string{string(StateInitializing)}, Dst: string(StateInitialized)},
		{Name: string(EventExitNotification), Src: live, Dst: string(StateShutdown)},
		{Name: string(EventTransportError), Src: live, Dst: string(StateShutdown)},
	}
	callbacks := lfsm.Callbacks{
		"enter_state": func(_ context.Context, e *lfsm.Event) {
			log.Debug("Session state changed.", "event", e.Event, "from", e.Src, "to", e.Dst)
		},
	}

	return &Machine{
		fsm:    lfsm.NewFSM(string(StateUninitialized), events, callbacks),
		logger: log,
	}
}

// CurrentState returns the current lifecycle state.
func (m *Machine) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State(m.fsm.Current())
}

// ValidateMethod reports whether method may be received in the current state.
// An out-of-sequence method yields an INVALID_REQUEST *mcperror.Error.
func (m *Machine) ValidateMethod(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := State(m.fsm.Current())
	if IsTerminal(current) {
		return m.sequenceError(method, current, "session has shut down")
	}

	// ping is answered in any live state.
	if method == "ping" {
		return nil
	}

	event := EventForMethod(method)
	if event == "" {
		if current == StateInitialized {
			return nil
		}
		return m.sequenceError(method, current, "initialization has not completed")
	}

	if !m.fsm.Can(string(event)) {
		return m.sequenceError(method, current, "not allowed in this state")
	}
	return nil
}

func (m *Machine) sequenceError(method string, current State, reason string) error {
	m.logger.Warn("Received out-of-sequence MCP method.", "method", method, "state", current)
	return mcperror.New(mcperror.CodeInvalidRequest,
		fmt.Sprintf("Method %q rejected: %s (state %q)", method, reason, current),
		mcperror.Context{Extra: map[string]any{"method": method, "state": string(current)}})
}

// Fire applies a lifecycle event. Firing an event that is not valid in the
// current state returns an error and leaves the state unchanged.
func (m *Machine) Fire(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.fsm.Current()
	if err := m.fsm.Event(ctx, string(event)); err != nil {
		var noTransition lfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return errors.Wrapf(err, "lifecycle event %s from state %s", event, from)
	}
	return nil
}

// FireForMethod applies the event for method, if it has one.
func (m *Machine) FireForMethod(ctx context.Context, method string) error {
	event := EventForMethod(method)
	if event == "" {
		return nil
	}
	return m.Fire(ctx, event)
}
