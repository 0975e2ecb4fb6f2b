package actor

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/readyctl/internal/action"
	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

type HostConfig struct {
	Client       Config
	Mode         action.Mode
	CaptureDelay time.Duration
	TriggerKey   action.Key
}

// Host is the host actor: a Client in the host role wired to an Executor.
type Host struct {
	client   *Client
	exec     *Executor
	capturer *action.Capturer
	view     func(State)

	mu         sync.Mutex
	runCtx     context.Context
	triggerKey action.Key
	capture    time.Duration
}

// NewHost builds a host actor that drives driver on every trigger. view is
// called with every state change and may be nil.
func NewHost(cfg HostConfig, driver action.Driver, view func(State)) (*Host, error) {
	cfg.Client.Role = protocol.RoleHost
	if cfg.TriggerKey == "" {
		cfg.TriggerKey = action.DefaultTriggerKey
	}
	h := &Host{
		exec:       NewExecutor(action.NewPerformer(driver), cfg.Mode),
		capturer:   action.NewCapturer(driver),
		view:       view,
		runCtx:     context.Background(),
		triggerKey: cfg.TriggerKey,
		capture:    cfg.CaptureDelay,
	}
	client, err := NewClient(cfg.Client, h)
	if err != nil {
		return nil, err
	}
	h.client = client
	h.exec.OnComplete(func(error) { client.ActionCompleted() })
	return h, nil
}

func (h *Host) Client() *Client { return h.client }

func (h *Host) Executor() *Executor { return h.exec }

func (h *Host) OnState(s State) {
	if h.view != nil {
		h.view(s)
	}
}

func (h *Host) OnTrigger() {
	h.mu.Lock()
	ctx := h.runCtx
	h.mu.Unlock()
	h.exec.Trigger(ctx)
}

// Run keeps the host connected until ctx ends, then waits for any action in
// progress.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	h.runCtx = ctx
	h.mu.Unlock()
	defer h.exec.Wait()
	return KeepConnected(ctx, h.client)
}

// CapturePoint drops the locked point, waits the configured delay, and locks
// whatever the pointer is on.
func (h *Host) CapturePoint(ctx context.Context) (action.Point, error) {
	h.exec.ClearPoint()
	h.mu.Lock()
	delay := h.capture
	h.mu.Unlock()
	log.Info().Dur("delay", delay).Msg("capturing target point")
	p, err := h.capturer.CaptureAfter(ctx, delay)
	if err != nil {
		return action.Point{}, err
	}
	h.exec.SetPoint(p)
	return p, nil
}

func (h *Host) TriggerKey() action.Key {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.triggerKey
}

func (h *Host) SetTriggerKey(k action.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.triggerKey = k
}

// PressKey sends ready when k is the trigger key and the ready affordance is
// enabled. It reports whether ready was sent.
func (h *Host) PressKey(k action.Key) bool {
	if k != h.TriggerKey() || !h.client.State().ReadyEnabled {
		return false
	}
	if err := h.client.SendReady(); err != nil {
		log.Warn().Err(err).Msg("send ready")
		return false
	}
	return true
}
