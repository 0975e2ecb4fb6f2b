package coordinator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/danmuck/readyctl/internal/testutil/testlog"
)

type recordingPeer struct {
	mu     sync.Mutex
	frames []protocol.Envelope
	refuse bool
}

func (p *recordingPeer) Send(env protocol.Envelope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refuse {
		return false
	}
	p.frames = append(p.frames, env)
	return true
}

// take returns and clears the frames received so far in wire-event shorthand.
func (p *recordingPeer) take() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.frames))
	for _, env := range p.frames {
		out = append(out, describe(env))
	}
	p.frames = nil
	return out
}

func describe(env protocol.Envelope) string {
	if env.Event != protocol.EventStatusUpdate {
		return string(env.Event)
	}
	snap, err := env.StatusUpdate()
	if err != nil {
		return "status(malformed)"
	}
	return fmt.Sprintf("status(%s,%s)", flag(snap.HostReady), flag(snap.ParticipantReady))
}

func flag(v bool) string {
	if v {
		return "T"
	}
	return "F"
}

type harness struct {
	t         *testing.T
	coord     *Coordinator
	ctx       context.Context
	scheduled chan func()
}

// newHarness runs a coordinator whose reset debounce is fired manually via fireReset.
func newHarness(t *testing.T) *harness {
	t.Helper()
	testlog.Start(t)
	coord := New(DefaultConfig())
	scheduled := make(chan func(), 8)
	coord.afterFunc = func(_ time.Duration, f func()) {
		scheduled <- f
	}
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-runErr; err != nil {
			t.Errorf("run: %v", err)
		}
	})
	return &harness{t: t, coord: coord, ctx: ctx, scheduled: scheduled}
}

// sync waits until every previously posted event has been handled.
func (h *harness) sync() Snapshot {
	h.t.Helper()
	snap, err := h.coord.Snapshot(h.ctx)
	if err != nil {
		h.t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func (h *harness) connect(id ConnID) *recordingPeer {
	h.t.Helper()
	peer := &recordingPeer{}
	if err := h.coord.Connect(h.ctx, id, peer); err != nil {
		h.t.Fatalf("connect %s: %v", id, err)
	}
	return peer
}

func (h *harness) register(id ConnID) {
	h.t.Helper()
	if err := h.coord.RegisterHost(h.ctx, id); err != nil {
		h.t.Fatalf("register %s: %v", id, err)
	}
}

func (h *harness) ready(id ConnID, role protocol.Role) {
	h.t.Helper()
	if err := h.coord.Ready(h.ctx, id, role); err != nil {
		h.t.Fatalf("ready %s: %v", id, err)
	}
}

func (h *harness) disconnect(id ConnID) {
	h.t.Helper()
	if err := h.coord.Disconnect(h.ctx, id); err != nil {
		h.t.Fatalf("disconnect %s: %v", id, err)
	}
}

func (h *harness) fireReset() {
	h.t.Helper()
	select {
	case f := <-h.scheduled:
		f()
	case <-time.After(time.Second):
		h.t.Fatalf("no reset broadcast scheduled")
	}
}

func (h *harness) expectNoReset() {
	h.t.Helper()
	select {
	case <-h.scheduled:
		h.t.Fatalf("unexpected reset broadcast scheduled")
	default:
	}
}

func expectFrames(t *testing.T, who string, peer *recordingPeer, want ...string) {
	t.Helper()
	got := peer.take()
	if len(want) == 0 {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s frames got=%v want=%v", who, got, want)
	}
}

func TestScenarioFullRendezvous(t *testing.T) {
	h := newHarness(t)

	p1 := h.connect("P1")
	h1 := h.connect("H1")
	h.sync()
	expectFrames(t, "P1", p1, "status(F,F)")
	expectFrames(t, "H1", h1, "status(F,F)")

	h.register("H1")
	h.sync()
	expectFrames(t, "P1", p1, "status(F,F)")
	expectFrames(t, "H1", h1, "status(F,F)")

	h.ready("P1", protocol.RoleParticipant)
	h.sync()
	expectFrames(t, "P1", p1, "status(F,T)")
	expectFrames(t, "H1", h1, "status(F,T)")

	h.ready("H1", protocol.RoleHost)
	snap := h.sync()
	expectFrames(t, "P1", p1, "status(T,T)")
	expectFrames(t, "H1", h1, "status(T,T)", "proceed_click")
	if snap.Status != (protocol.StatusUpdate{}) {
		t.Fatalf("flags must clear at dispatch, got %+v", snap.Status)
	}
	if snap.Rendezvous != 1 {
		t.Fatalf("unexpected rendezvous count %d", snap.Rendezvous)
	}

	h.fireReset()
	h.sync()
	expectFrames(t, "P1", p1, "status(F,F)")
	expectFrames(t, "H1", h1, "status(F,F)")
}

func TestScenarioRepeatedHostReadyNeverTriggers(t *testing.T) {
	h := newHarness(t)
	h1 := h.connect("H1")
	h.register("H1")
	h.sync()
	h1.take()

	h.ready("H1", protocol.RoleHost)
	h.ready("H1", protocol.RoleHost)
	snap := h.sync()
	expectFrames(t, "H1", h1, "status(T,F)", "status(T,F)")
	if snap.Phase != PhaseHostReady {
		t.Fatalf("unexpected phase %q", snap.Phase)
	}
	h.expectNoReset()
}

func TestScenarioHostDisconnectResets(t *testing.T) {
	h := newHarness(t)
	p1 := h.connect("P1")
	h.connect("H1")
	h.register("H1")
	h.ready("H1", protocol.RoleHost)
	h.sync()
	p1.take()

	h.disconnect("H1")
	snap := h.sync()
	expectFrames(t, "P1", p1, "status(F,F)")
	if snap.HostRegistered {
		t.Fatalf("host identity must be cleared")
	}
	if snap.Connections != 1 {
		t.Fatalf("unexpected connections %d", snap.Connections)
	}
}

func TestScenarioOrphanDispatchResets(t *testing.T) {
	h := newHarness(t)
	p1 := h.connect("P1")
	h1 := h.connect("H1")
	h.register("H1")
	h.ready("H1", protocol.RoleHost)
	h.disconnect("H1")
	h.ready("P1", protocol.RoleParticipant)
	h.ready("P2", protocol.RoleHost)
	snap := h.sync()

	// H1 saw its own ready; host disconnect cleared the host flag.
	expectFrames(t, "H1", h1, "status(F,F)", "status(F,F)", "status(T,F)")
	expectFrames(t, "P1", p1, "status(F,F)", "status(F,F)", "status(T,F)", "status(F,F)", "status(F,T)", "status(T,T)")
	if snap.Status != (protocol.StatusUpdate{}) {
		t.Fatalf("orphan dispatch must still reset, got %+v", snap.Status)
	}

	h.fireReset()
	h.sync()
	expectFrames(t, "P1", p1, "status(F,F)")
}

func TestNonHostDisconnectIsSilent(t *testing.T) {
	h := newHarness(t)
	h1 := h.connect("H1")
	h.connect("P1")
	h.register("H1")
	h.ready("P1", protocol.RoleParticipant)
	h.sync()
	h1.take()

	h.disconnect("P1")
	snap := h.sync()
	expectFrames(t, "H1", h1)
	if !snap.Status.ParticipantReady {
		t.Fatalf("participant disconnect must not clear its flag")
	}
	if !snap.HostRegistered {
		t.Fatalf("participant disconnect must not clear host")
	}
}

func TestReRegistrationReplacesHost(t *testing.T) {
	h := newHarness(t)
	old := h.connect("H1")
	fresh := h.connect("H2")
	p1 := h.connect("P1")
	h.register("H1")
	h.ready("P1", protocol.RoleParticipant)
	h.register("H2")
	snap := h.sync()
	if snap.Status != (protocol.StatusUpdate{}) {
		t.Fatalf("registration must reset flags, got %+v", snap.Status)
	}
	old.take()
	fresh.take()
	p1.take()

	h.ready("P1", protocol.RoleParticipant)
	h.ready("H1", protocol.RoleHost)
	h.sync()
	expectFrames(t, "H1", old, "status(F,T)", "status(T,T)")
	expectFrames(t, "H2", fresh, "status(F,T)", "status(T,T)", "proceed_click")

	// The replaced host disconnecting is not a host disconnect any more.
	h.fireReset()
	h.sync()
	p1.take()
	h.disconnect("H1")
	snap = h.sync()
	expectFrames(t, "P1", p1)
	if !snap.HostRegistered {
		t.Fatalf("old host disconnect must not clear the new host")
	}
}

func TestAtMostOneTriggerPerRendezvous(t *testing.T) {
	h := newHarness(t)
	h1 := h.connect("H1")
	h.connect("P1")
	h.register("H1")

	for i := 0; i < 3; i++ {
		h.ready("H1", protocol.RoleHost)
		h.ready("H1", protocol.RoleHost)
		h.ready("P1", protocol.RoleParticipant)
		h.ready("P1", protocol.RoleParticipant)
	}
	snap := h.sync()

	triggers := 0
	for _, frame := range h1.take() {
		if frame == "proceed_click" {
			triggers++
		}
	}
	// Each round: H,H -> (T,F) twice; P -> (T,T) dispatch; P -> (F,T).
	// Rounds 2 and 3 start from (F,T), so the first host ready dispatches again.
	if triggers != 5 {
		t.Fatalf("unexpected trigger count %d", triggers)
	}
	if snap.Rendezvous != uint64(triggers) {
		t.Fatalf("rendezvous %d != triggers %d", snap.Rendezvous, triggers)
	}
}

func TestInvalidRoleIgnored(t *testing.T) {
	h := newHarness(t)
	p1 := h.connect("P1")
	h.sync()
	p1.take()

	h.ready("P1", protocol.Role("referee"))
	snap := h.sync()
	expectFrames(t, "P1", p1)
	if snap.Phase != PhaseIdle {
		t.Fatalf("unexpected phase %q", snap.Phase)
	}
}

func TestRegisterFromUnknownConnectionIgnored(t *testing.T) {
	h := newHarness(t)
	p1 := h.connect("P1")
	h.ready("P1", protocol.RoleParticipant)
	h.sync()
	p1.take()

	h.register("ghost")
	snap := h.sync()
	expectFrames(t, "P1", p1)
	if snap.HostRegistered || !snap.Status.ParticipantReady {
		t.Fatalf("unknown registration must not change state: %+v", snap)
	}
}

func TestTriggerToFullHostBufferStillResets(t *testing.T) {
	h := newHarness(t)
	h1 := h.connect("H1")
	h.connect("P1")
	h.register("H1")
	h.sync()
	h1.mu.Lock()
	h1.refuse = true
	h1.mu.Unlock()

	h.ready("H1", protocol.RoleHost)
	h.ready("P1", protocol.RoleParticipant)
	snap := h.sync()
	if snap.Phase != PhaseIdle {
		t.Fatalf("unexpected phase %q", snap.Phase)
	}
	h.fireReset()
}

func TestZeroDebounceBroadcastsInline(t *testing.T) {
	testlog.Start(t)
	coord := New(Config{ResetDebounce: 0})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = coord.Run(ctx) }()

	host := &recordingPeer{}
	if err := coord.Connect(ctx, "H1", host); err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = coord.RegisterHost(ctx, "H1")
	_ = coord.Ready(ctx, "H1", protocol.RoleHost)
	_ = coord.Ready(ctx, "H1", protocol.RoleParticipant)
	if _, err := coord.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	expectFrames(t, "H1", host,
		"status(F,F)", "status(F,F)", "status(T,F)", "status(T,T)", "proceed_click", "status(F,F)")
}

func TestDebouncedResetUsesTimer(t *testing.T) {
	testlog.Start(t)
	coord := New(Config{ResetDebounce: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = coord.Run(ctx) }()

	host := &recordingPeer{}
	_ = coord.Connect(ctx, "H1", host)
	_ = coord.RegisterHost(ctx, "H1")
	_ = coord.Ready(ctx, "H1", protocol.RoleHost)
	_ = coord.Ready(ctx, "H1", protocol.RoleParticipant)
	if _, err := coord.Snapshot(ctx); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	expectFrames(t, "H1", host, "status(F,F)", "status(F,F)", "status(T,F)", "status(T,T)", "proceed_click")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		if _, err := coord.Snapshot(ctx); err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if got := host.take(); len(got) > 0 {
			if !reflect.DeepEqual(got, []string{"status(F,F)"}) {
				t.Fatalf("unexpected reset frames %v", got)
			}
			return
		}
	}
	t.Fatalf("reset broadcast never arrived")
}

func TestPostAfterStopFails(t *testing.T) {
	testlog.Start(t)
	coord := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	<-coord.Done()

	if err := coord.Ready(context.Background(), "P1", protocol.RoleParticipant); !errors.Is(err, ErrCoordinatorStopped) {
		t.Fatalf("expected ErrCoordinatorStopped, got %v", err)
	}
	if _, err := coord.Snapshot(context.Background()); !errors.Is(err, ErrCoordinatorStopped) {
		t.Fatalf("expected ErrCoordinatorStopped, got %v", err)
	}
	if err := coord.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) && !errors.Is(err, ErrCoordinatorStopped) {
		t.Fatalf("second run must fail, got %v", err)
	}
}
