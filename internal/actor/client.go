package actor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/danmuck/readyctl/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired  = errors.New("actor: coordinator address required")
	ErrInvalidRole      = errors.New("actor: invalid role")
	ErrNotConnected     = errors.New("actor: not connected")
	ErrAlreadyConnected = errors.New("actor: already connected")
)

type Config struct {
	Address            string
	Role               protocol.Role
	Transport          transport.Config
	MaxConnectAttempts int
}

func DefaultConfig() Config {
	return Config{Transport: transport.DefaultConfig()}
}

// State is what an actor renders: connection, the ready affordance, and the
// last status seen from its own and its peer's point of view.
type State struct {
	Role         protocol.Role
	Connected    bool
	ReadyEnabled bool
	SelfReady    bool
	PeerReady    bool
}

// Handler receives state changes and, for hosts, triggers. OnTrigger comes
// from the read loop. OnState runs on whichever goroutine changed the state,
// one call at a time in change order; it must not block or call back into
// the Client.
type Handler interface {
	OnState(State)
	OnTrigger()
}

// HandlerFuncs adapts plain functions to Handler; nil fields are skipped.
type HandlerFuncs struct {
	State   func(State)
	Trigger func()
}

func (h HandlerFuncs) OnState(s State) {
	if h.State != nil {
		h.State(s)
	}
}

func (h HandlerFuncs) OnTrigger() {
	if h.Trigger != nil {
		h.Trigger()
	}
}

type Client struct {
	cfg     Config
	url     string
	handler Handler
	dialer  websocket.Dialer
	rng     *rand.Rand

	mu           sync.Mutex
	conn         *websocket.Conn
	done         chan struct{}
	connected    bool
	readyEnabled bool
	status       protocol.StatusUpdate

	writeMu sync.Mutex
	emitMu  sync.Mutex
}

func NewClient(cfg Config, handler Handler) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if !cfg.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, cfg.Role)
	}
	cfg.Transport = cfg.Transport.WithDefaults()
	url, err := transport.EventChannelURL(cfg.Address, cfg.Transport.TLS.Enabled)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.Transport.ClientTLSConfig(url)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		handler = HandlerFuncs{}
	}
	closed := make(chan struct{})
	close(closed)
	return &Client{
		cfg:     cfg,
		url:     url,
		handler: handler,
		dialer: websocket.Dialer{
			HandshakeTimeout: cfg.Transport.HandshakeTimeout,
			TLSClientConfig:  tlsCfg,
		},
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		done: closed,
	}, nil
}

func (c *Client) Role() protocol.Role { return c.cfg.Role }

func (c *Client) URL() string { return c.url }

// Connect dials the coordinator, retrying with backoff up to
// MaxConnectAttempts (unbounded when <= 0). A host registers itself before
// Connect returns, so no ready can precede its registration.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.cfg.Transport.ValidateClientTransport(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	var attempt int
	for {
		attempt++
		conn, err := c.dial(ctx)
		if err == nil {
			return c.start(conn)
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("url", c.url).Str("role", c.cfg.Role.String()).Msg("connect failed")
		if !c.shouldRetry(attempt) {
			c.emit()
			return err
		}
		if err := transport.Sleep(ctx, c.cfg.Transport.Backoff, attempt, c.rng); err != nil {
			return err
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Transport.ConnectTimeout)
	defer cancel()
	conn, _, err := c.dialer.DialContext(dialCtx, c.url, nil)
	return conn, err
}

func (c *Client) shouldRetry(attempt int) bool {
	if c.cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < c.cfg.MaxConnectAttempts
}

func (c *Client) start(conn *websocket.Conn) error {
	conn.SetReadLimit(c.cfg.Transport.MaxMessageBytes)
	if c.cfg.Role == protocol.RoleHost {
		if err := c.write(conn, protocol.RegisterHost()); err != nil {
			_ = conn.Close()
			return fmt.Errorf("actor: register host: %w", err)
		}
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.connected = true
	c.status = protocol.StatusUpdate{}
	c.readyEnabled = true
	c.mu.Unlock()

	log.Info().Str("url", c.url).Str("role", c.cfg.Role.String()).Msg("connected to coordinator")
	c.emit()
	go c.readLoop(conn, done)
	return nil
}

// SendReady announces this actor's readiness. The ready affordance stays
// disabled until a status_update clears the flag again.
func (c *Client) SendReady() error {
	c.mu.Lock()
	conn := c.conn
	if !c.connected || conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.readyEnabled = false
	c.mu.Unlock()

	env, err := protocol.Ready(c.cfg.Role)
	if err != nil {
		return err
	}
	if err := c.write(conn, env); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	c.emit()
	return nil
}

// ActionCompleted re-enables the ready affordance after a host action,
// provided the channel is still up and the own flag is clear.
func (c *Client) ActionCompleted() {
	c.mu.Lock()
	c.readyEnabled = c.connected && !c.status.Ready(c.cfg.Role)
	c.mu.Unlock()
	c.emit()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Client) stateLocked() State {
	return State{
		Role:         c.cfg.Role,
		Connected:    c.connected,
		ReadyEnabled: c.readyEnabled,
		SelfReady:    c.status.Ready(c.cfg.Role),
		PeerReady:    c.status.Ready(c.cfg.Role.Peer()),
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Done is closed when the current connection ends.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Close ends the current connection with a normal closure.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.cfg.Transport.WriteTimeout),
	)
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Client) write(conn *websocket.Conn, env protocol.Envelope) error {
	raw, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.Transport.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	var err error
	defer func() { c.onDisconnect(conn, done, err) }()
	for {
		var raw []byte
		_, raw, err = conn.ReadMessage()
		if err != nil {
			return
		}
		env, decodeErr := protocol.DecodeOutbound(raw, int(c.cfg.Transport.MaxMessageBytes))
		if decodeErr != nil {
			log.Warn().Err(decodeErr).Str("role", c.cfg.Role.String()).Msg("ignoring frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventStatusUpdate:
		status, err := env.StatusUpdate()
		if err != nil {
			log.Warn().Err(err).Msg("ignoring status_update")
			return
		}
		c.onStatus(status)
	case protocol.EventProceedClick:
		if c.cfg.Role != protocol.RoleHost {
			log.Warn().Str("role", c.cfg.Role.String()).Msg("proceed_click received by non-host actor")
			return
		}
		log.Info().Msg("proceed_click received")
		c.handler.OnTrigger()
	}
}

func (c *Client) onStatus(status protocol.StatusUpdate) {
	c.mu.Lock()
	c.status = status
	c.readyEnabled = c.connected && !status.Ready(c.cfg.Role)
	c.mu.Unlock()
	log.Debug().
		Bool("host_ready", status.HostReady).
		Bool("participant_ready", status.ParticipantReady).
		Str("role", c.cfg.Role.String()).
		Msg("status_update")
	c.emit()
}

func (c *Client) onDisconnect(conn *websocket.Conn, done chan struct{}, err error) {
	_ = conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected = false
		c.readyEnabled = false
	}
	c.mu.Unlock()
	close(done)
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info().Str("role", c.cfg.Role.String()).Msg("disconnected from coordinator")
	} else {
		log.Warn().Err(err).Str("role", c.cfg.Role.String()).Msg("connection lost")
	}
	c.emit()
}

func (c *Client) emit() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.handler.OnState(c.State())
}
