package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danmuck/readyctl/internal/observability"
	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrCoordinatorStopped = errors.New("coordinator: stopped")
	ErrAlreadyRunning     = errors.New("coordinator: already running")
)

// Peer is the send side of one connection. Send must not block; a false
// return means the frame was dropped. Delivery is fire-and-forget.
type Peer interface {
	Send(env protocol.Envelope) bool
}

// Config tunes the coordinator loop.
type Config struct {
	// ResetDebounce delays the post-dispatch reset broadcast so the host can
	// start its action before participant UIs visibly reset.
	ResetDebounce time.Duration
	QueueSize     int
}

func DefaultConfig() Config {
	return Config{
		ResetDebounce: 100 * time.Millisecond,
		QueueSize:     64,
	}
}

// Snapshot is a read-only view of session and registry state.
type Snapshot struct {
	Status         protocol.StatusUpdate `json:"status"`
	Phase          Phase                 `json:"phase"`
	HostRegistered bool                  `json:"host_registered"`
	Connections    int                   `json:"connections"`
	Rendezvous     uint64                `json:"rendezvous"`
}

type eventKind uint8

const (
	eventUnknown eventKind = iota
	eventConnect
	eventRegisterHost
	eventReady
	eventDisconnect
	eventResetBroadcast
	eventSnapshot
)

func (k eventKind) String() string {
	switch k {
	case eventConnect:
		return "connect"
	case eventRegisterHost:
		return string(protocol.EventRegisterHost)
	case eventReady:
		return string(protocol.EventReady)
	case eventDisconnect:
		return "disconnect"
	case eventResetBroadcast:
		return "reset_broadcast"
	case eventSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// event is the single message type processed by the loop.
type event struct {
	kind  eventKind
	conn  ConnID
	peer  Peer
	role  protocol.Role
	reply chan Snapshot
}

// Coordinator is the single authoritative state machine for one session.
type Coordinator struct {
	cfg Config

	events   chan event
	done     chan struct{}
	stopOnce sync.Once
	running  sync.Mutex

	// Owned by the Run goroutine.
	registry   *Registry
	session    Session
	rendezvous uint64
	afterFunc  func(time.Duration, func())
}

func New(cfg Config) *Coordinator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.ResetDebounce < 0 {
		cfg.ResetDebounce = 0
	}
	return &Coordinator{
		cfg:      cfg,
		events:   make(chan event, cfg.QueueSize),
		done:     make(chan struct{}),
		registry: NewRegistry(),
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Run processes events until ctx is cancelled. It may be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.TryLock() {
		return ErrAlreadyRunning
	}
	select {
	case <-c.done:
		return ErrCoordinatorStopped
	default:
	}
	defer c.stop()

	log.Debug().Dur("reset_debounce", c.cfg.ResetDebounce).Msg("coordinator loop started")
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("coordinator loop stopped")
			return nil
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Done is closed once the loop has stopped.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Connect tracks a new connection and unicasts the current snapshot to it.
func (c *Coordinator) Connect(ctx context.Context, id ConnID, peer Peer) error {
	return c.post(ctx, event{kind: eventConnect, conn: id, peer: peer})
}

// RegisterHost makes id the host and resets the session.
func (c *Coordinator) RegisterHost(ctx context.Context, id ConnID) error {
	return c.post(ctx, event{kind: eventRegisterHost, conn: id})
}

// Ready marks role ready on behalf of id.
func (c *Coordinator) Ready(ctx context.Context, id ConnID, role protocol.Role) error {
	return c.post(ctx, event{kind: eventReady, conn: id, role: role})
}

// Disconnect forgets id; a host disconnect resets the session.
func (c *Coordinator) Disconnect(ctx context.Context, id ConnID) error {
	return c.post(ctx, event{kind: eventDisconnect, conn: id})
}

// Snapshot reads state through the loop so it is consistent with event order.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := c.post(ctx, event{kind: eventSnapshot, reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-c.done:
		return Snapshot{}, ErrCoordinatorStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Coordinator) post(ctx context.Context, ev event) error {
	select {
	case <-c.done:
		return ErrCoordinatorStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handle(ev event) {
	if ev.kind != eventSnapshot && ev.kind != eventResetBroadcast {
		observability.RecordEvent(ev.kind.String())
	}
	switch ev.kind {
	case eventConnect:
		c.onConnect(ev.conn, ev.peer)
	case eventRegisterHost:
		c.onRegisterHost(ev.conn)
	case eventReady:
		c.onReady(ev.conn, ev.role)
	case eventDisconnect:
		c.onDisconnect(ev.conn)
	case eventResetBroadcast:
		c.broadcast()
	case eventSnapshot:
		ev.reply <- c.snapshot()
	default:
		log.Warn().Uint8("kind", uint8(ev.kind)).Msg("coordinator dropped unknown event")
	}
}

func (c *Coordinator) onConnect(id ConnID, peer Peer) {
	if peer == nil {
		log.Warn().Str("conn", string(id)).Msg("coordinator connect without peer")
		return
	}
	c.registry.Add(id, peer)
	observability.SetConnections(c.registry.Len())
	log.Info().Str("conn", string(id)).Int("connections", c.registry.Len()).Msg("client connected")
	c.send(peer, protocol.Status(c.session.Status()))
}

func (c *Coordinator) onRegisterHost(id ConnID) {
	previous, ok := c.registry.SetHost(id)
	if !ok {
		log.Warn().Str("conn", string(id)).Msg("register_host_client from unknown connection")
		return
	}
	ev := log.Info().Str("conn", string(id))
	if previous != "" && previous != id {
		ev = ev.Str("replaced", string(previous))
	}
	ev.Msg("host registered")
	c.session.Reset()
	c.broadcast()
}

func (c *Coordinator) onReady(id ConnID, role protocol.Role) {
	if !role.Valid() {
		log.Warn().Str("conn", string(id)).Str("role", role.String()).Msg("ready with invalid role ignored")
		return
	}
	c.registry.ObserveRole(id, role)
	changed := c.session.MarkReady(role)
	log.Debug().
		Str("conn", string(id)).
		Str("role", role.String()).
		Bool("changed", changed).
		Msg("ready")
	c.broadcast()
	if c.session.BothReady() {
		c.dispatch()
	}
}

func (c *Coordinator) onDisconnect(id ConnID) {
	wasHost := c.registry.Remove(id)
	observability.SetConnections(c.registry.Len())
	if !wasHost {
		log.Info().Str("conn", string(id)).Int("connections", c.registry.Len()).Msg("client disconnected")
		return
	}
	log.Warn().Str("conn", string(id)).Msg("host disconnected, session reset")
	c.session.Reset()
	c.broadcast()
}

// dispatch delivers one trigger to the registered host, clears the flags and
// schedules the reset broadcast.
func (c *Coordinator) dispatch() {
	c.rendezvous++
	host, ok := c.registry.Host()
	switch {
	case !ok:
		observability.RecordTrigger(observability.TriggerDropped)
		log.Warn().Uint64("rendezvous", c.rendezvous).Msg("both ready but no host registered, trigger dropped")
	case !host.Peer.Send(protocol.ProceedClick()):
		observability.RecordOutboundDropped()
		observability.RecordTrigger(observability.TriggerDropped)
		log.Warn().Str("conn", string(host.ID)).Uint64("rendezvous", c.rendezvous).Msg("trigger not deliverable to host")
	default:
		observability.RecordTrigger(observability.TriggerDelivered)
		log.Info().Str("conn", string(host.ID)).Uint64("rendezvous", c.rendezvous).Msg("trigger sent to host")
	}

	c.session.Reset()
	if c.cfg.ResetDebounce <= 0 {
		c.broadcast()
		return
	}
	c.afterFunc(c.cfg.ResetDebounce, func() {
		if err := c.post(context.Background(), event{kind: eventResetBroadcast}); err != nil {
			log.Debug().Err(err).Msg("reset broadcast skipped")
		}
	})
}

func (c *Coordinator) broadcast() {
	env := protocol.Status(c.session.Status())
	for _, peer := range c.registry.Peers() {
		c.send(peer, env)
	}
	observability.RecordBroadcast()
}

func (c *Coordinator) send(peer Peer, env protocol.Envelope) {
	if !peer.Send(env) {
		observability.RecordOutboundDropped()
	}
}

func (c *Coordinator) snapshot() Snapshot {
	_, hasHost := c.registry.HostID()
	return Snapshot{
		Status:         c.session.Status(),
		Phase:          c.session.Phase(),
		HostRegistered: hasHost,
		Connections:    c.registry.Len(),
		Rendezvous:     c.rendezvous,
	}
}
