package warp

import (
	"time"
)

type State uint8

const (
	State_Idle State = iota
	State_TeleportingOut
	State_AwaitingServerResult
	State_TeleportingIn
	State_Aborted
)

func (s State) String() string {
	switch s {
	case State_Idle:
		return "Idle"
	case State_TeleportingOut:
		return "TeleportingOut"
	case State_AwaitingServerResult:
		return "AwaitingServerResult"
	case State_TeleportingIn:
		return "TeleportingIn"
	case State_Aborted:
		return "Aborted"
	}
	return "Unknown"
}

type MachineParams struct {
	TeleportOutDuration time.Duration
	TeleportInDuration  time.Duration
	// MinimumCinemaDuration is the shortest time the warp loading cinematic
	// stays up after the request is sent, however fast the server answers.
	MinimumCinemaDuration time.Duration
	// FastRespawn sends requests without waiting for the teleport-out animation.
	FastRespawn bool
}

// Outcome is reported once per warp, when the machine leaves
// AwaitingServerResult.
type Outcome struct {
	Request         Request
	Success         bool
	InvalidBookmark bool
}

// Tick is what a single Update produced. Send is set exactly once per warp,
// when the request should go to the server.
type Tick struct {
	Send     *Request
	Resolved *Outcome
}

// Machine sequences one player's warp: local teleport-out animation, a single
// server round trip, then teleport-in on success or a reversed animation on
// failure.
type Machine struct {
	params MachineParams

	state   State
	pending Request
	timer   time.Duration
	cinema  time.Duration
	result  *Result
}

func NewMachine(params MachineParams) *Machine {
	return &Machine{params: params}
}

func (m *Machine) SetParams(params MachineParams) {
	m.params = params
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Warping() bool {
	return m.state != State_Idle
}

// InFlight returns the request currently being processed, if any.
func (m *Machine) InFlight() (Request, bool) {
	if m.state == State_Idle {
		return Request{}, false
	}
	return m.pending, true
}

// CinemaActive reports whether the warp loading cinematic should be showing.
func (m *Machine) CinemaActive() bool {
	return m.state == State_AwaitingServerResult
}

// Request starts a warp. It is rejected if another warp is in progress.
func (m *Machine) Request(req Request) bool {
	if m.state != State_Idle || req.Action.IsNone() {
		return false
	}

	m.state = State_TeleportingOut
	m.pending = req
	m.result = nil
	m.timer = m.params.TeleportOutDuration
	if req.Animation == "" || m.params.FastRespawn {
		m.timer = 0
	}
	return true
}

// HandleResult records the server's answer. Results that arrive when no
// request is outstanding are ignored and reported as false.
func (m *Machine) HandleResult(res Result) bool {
	if m.state != State_AwaitingServerResult || m.result != nil {
		return false
	}
	m.result = &res
	return true
}

func (m *Machine) Update(dt time.Duration) Tick {
	var tick Tick

	switch m.state {
	case State_TeleportingOut:
		m.timer -= dt
		if m.timer <= 0 {
			m.state = State_AwaitingServerResult
			m.cinema = m.params.MinimumCinemaDuration
			req := m.pending
			tick.Send = &req
		}

	case State_AwaitingServerResult:
		m.cinema = max(m.cinema-dt, 0)
		if m.result == nil {
			break
		}
		if !m.result.Success {
			m.state = State_Aborted
			m.timer = m.params.TeleportInDuration
			tick.Resolved = &Outcome{Request: m.pending, InvalidBookmark: m.result.ActionInvalid}
			m.result = nil
			break
		}
		if m.cinema > 0 {
			break
		}
		m.state = State_TeleportingIn
		m.timer = m.params.TeleportInDuration
		tick.Resolved = &Outcome{Request: m.pending, Success: true, InvalidBookmark: m.result.ActionInvalid}
		m.result = nil

	case State_TeleportingIn, State_Aborted:
		m.timer -= dt
		if m.timer <= 0 {
			m.Reset()
		}
	}

	return tick
}

// Reset drops any warp in progress. Used on disconnect.
func (m *Machine) Reset() {
	m.state = State_Idle
	m.pending = Request{}
	m.result = nil
	m.timer = 0
	m.cinema = 0
}
