package warp

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sessamekesh/universe-client/pkg/celestial"
	"github.com/sessamekesh/universe-client/pkg/datastream"
)

var testParams = MachineParams{
	TeleportOutDuration:   500 * time.Millisecond,
	TeleportInDuration:    300 * time.Millisecond,
	MinimumCinemaDuration: time.Second,
}

func sendsWithin(t *testing.T, m *Machine, steps int, dt time.Duration) *Request {
	t.Helper()
	for i := 0; i < steps; i++ {
		if tick := m.Update(dt); tick.Send != nil {
			return tick.Send
		}
	}
	return nil
}

func TestRequestWaitsForTeleportOut(t *testing.T) {
	m := NewMachine(testParams)
	if !m.Request(Request{Action: ToAlias(Alias_OwnShip), Animation: "beam"}) {
		t.Fatalf("request from idle should be accepted")
	}

	if tick := m.Update(400 * time.Millisecond); tick.Send != nil {
		t.Fatalf("request sent before teleport-out finished")
	}
	tick := m.Update(100 * time.Millisecond)
	if tick.Send == nil || tick.Send.Action.Alias != Alias_OwnShip {
		t.Fatalf("expected request to be sent, got %+v", tick)
	}
	if m.State() != State_AwaitingServerResult {
		t.Fatalf("expected AwaitingServerResult, got %s", m.State())
	}
	if tick := m.Update(time.Millisecond); tick.Send != nil {
		t.Fatalf("request must only be sent once")
	}
}

func TestFastRespawnSkipsAnimation(t *testing.T) {
	params := testParams
	params.FastRespawn = true
	m := NewMachine(params)
	m.Request(Request{Action: ToAlias(Alias_OwnShip), Animation: "beam"})
	if tick := m.Update(0); tick.Send == nil {
		t.Fatalf("fast respawn should send on the first update")
	}
}

func TestSecondRequestIsRejectedWhileInFlight(t *testing.T) {
	m := NewMachine(testParams)
	m.Request(Request{Action: ToBookmark("home")})
	m.Update(0)
	if m.State() != State_AwaitingServerResult {
		t.Fatalf("expected AwaitingServerResult, got %s", m.State())
	}

	if m.Request(Request{Action: ToAlias(Alias_Return)}) {
		t.Fatalf("second warp must be rejected while awaiting a result")
	}
	req, _ := m.InFlight()
	if req.Action.Bookmark != "home" {
		t.Fatalf("in flight request was replaced: %v", req.Action)
	}
}

func TestSuccessHonorsMinimumCinema(t *testing.T) {
	m := NewMachine(testParams)
	m.Request(Request{Action: ToAlias(Alias_OrbitedWorld)})
	m.Update(0)

	if !m.HandleResult(Result{Success: true}) {
		t.Fatalf("result should be accepted")
	}
	if tick := m.Update(500 * time.Millisecond); tick.Resolved != nil {
		t.Fatalf("resolved before the minimum cinema elapsed")
	}
	if !m.CinemaActive() {
		t.Fatalf("cinema should still be active")
	}

	tick := m.Update(500 * time.Millisecond)
	if tick.Resolved == nil || !tick.Resolved.Success {
		t.Fatalf("expected successful resolution, got %+v", tick)
	}
	if m.State() != State_TeleportingIn {
		t.Fatalf("expected TeleportingIn, got %s", m.State())
	}

	m.Update(300 * time.Millisecond)
	if m.State() != State_Idle {
		t.Fatalf("expected Idle after teleport-in, got %s", m.State())
	}
}

func TestFailureAbortsAndFlagsBookmark(t *testing.T) {
	m := NewMachine(testParams)
	m.Request(Request{Action: ToBookmark("gone"), Animation: "beam"})
	if sendsWithin(t, m, 10, 100*time.Millisecond) == nil {
		t.Fatalf("request never sent")
	}

	m.HandleResult(Result{Success: false, ActionInvalid: true})
	tick := m.Update(0)
	if tick.Resolved == nil || tick.Resolved.Success || !tick.Resolved.InvalidBookmark {
		t.Fatalf("expected failed resolution with invalid bookmark, got %+v", tick.Resolved)
	}
	if tick.Resolved.Request.Action.Bookmark != "gone" {
		t.Fatalf("outcome lost its request")
	}
	if m.State() != State_Aborted {
		t.Fatalf("expected Aborted, got %s", m.State())
	}

	m.Update(time.Second)
	if m.Warping() {
		t.Fatalf("machine should be idle after abort animation")
	}
	if !m.Request(Request{Action: ToAlias(Alias_OwnShip)}) {
		t.Fatalf("new requests should be accepted once idle")
	}
}

func TestStrayResultIsIgnored(t *testing.T) {
	m := NewMachine(testParams)
	if m.HandleResult(Result{Success: true}) {
		t.Fatalf("result with nothing in flight should be ignored")
	}
	m.Request(Request{Action: ToAlias(Alias_OwnShip), Animation: "beam"})
	if m.HandleResult(Result{Success: true}) {
		t.Fatalf("result before the request was sent should be ignored")
	}
}

func TestResetClearsWarp(t *testing.T) {
	m := NewMachine(testParams)
	m.Request(Request{Action: ToAlias(Alias_OwnShip)})
	m.Update(0)
	m.Reset()
	if m.Warping() || m.CinemaActive() {
		t.Fatalf("reset should return to idle")
	}
}

func TestActionEncoding(t *testing.T) {
	owner := uuid.New()
	actions := []Action{
		ToWorld(CelestialWorld(celestial.Coordinate{X: 1, Y: 2, Z: 3, Planet: 4}), SpawnTarget{UniqueId: "door"}),
		ToWorld(InstanceWorld("outpost", owner), SpawnTarget{}),
		ToWorld(ClientShipWorld(owner), SpawnTarget{}),
		ToPlayer(owner),
		ToAlias(Alias_Return),
		ToBookmark("base"),
	}
	for _, a := range actions {
		w := datastream.NewWriter()
		a.Write(w)
		got, err := ReadAction(datastream.NewReader(w.Bytes(), "Action"))
		if err != nil {
			t.Fatalf("decode %s: %v", a, err)
		}
		if got != a {
			t.Fatalf("decoded %s, want %s", got, a)
		}
	}
}
