package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIllegalTransition is returned when the run tries to skip or repeat a stage.
var ErrIllegalTransition = errors.New("illegal state transition")

// State is the stage a run has reached.
type State int

const (
	StateIdle State = iota
	StateGraphBuilt
	StateEndpointsClassified
	StateWallPassDone
	StateSoilPassDone
	StateValidated
	StateSerialized
	StateDone
	StateFailed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGraphBuilt:
		return "graph_built"
	case StateEndpointsClassified:
		return "endpoints_classified"
	case StateWallPassDone:
		return "wall_pass_done"
	case StateSoilPassDone:
		return "soil_pass_done"
	case StateValidated:
		return "validated"
	case StateSerialized:
		return "serialized"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for Done and Failed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:                {StateGraphBuilt},
	StateGraphBuilt:          {StateEndpointsClassified},
	StateEndpointsClassified: {StateWallPassDone, StateSoilPassDone},
	StateWallPassDone:        {StateSoilPassDone, StateValidated},
	StateSoilPassDone:        {StateWallPassDone, StateValidated},
	StateValidated:           {StateSerialized},
	StateSerialized:          {StateDone},
}

// stateMachine tracks a single run. The two coupling passes finish in either
// order; Validated is only reachable once both have reported.
type stateMachine struct {
	mu      sync.Mutex
	state   State
	history []State
	passes  map[State]bool
	onEnter func(from, to State)
}

func newStateMachine(onEnter func(from, to State)) *stateMachine {
	return &stateMachine{
		state:   StateIdle,
		history: []State{StateIdle},
		passes:  make(map[State]bool, 2),
		onEnter: onEnter,
	}
}

func (m *stateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *stateMachine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}

// Advance moves to next if the transition is allowed.
func (m *stateMachine) Advance(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	if !m.allowed(from, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, next)
	}
	if next == StateWallPassDone || next == StateSoilPassDone {
		m.passes[next] = true
	}
	m.enter(from, next)
	return nil
}

// Fail moves any non-terminal state to Failed.
func (m *stateMachine) Fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.IsTerminal() {
		return
	}
	m.enter(m.state, StateFailed)
}

func (m *stateMachine) enter(from, to State) {
	m.state = to
	m.history = append(m.history, to)
	if m.onEnter != nil {
		m.onEnter(from, to)
	}
}

func (m *stateMachine) allowed(from, to State) bool {
	listed := false
	for _, s := range transitions[from] {
		if s == to {
			listed = true
			break
		}
	}
	switch {
	case !listed:
		return false
	case to == StateValidated:
		return m.passes[StateWallPassDone] && m.passes[StateSoilPassDone]
	case to == StateWallPassDone || to == StateSoilPassDone:
		return !m.passes[to]
	}
	return true
}
