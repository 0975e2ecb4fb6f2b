package coordinator

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/readyctl/internal/observability"
	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/danmuck/readyctl/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// ServiceConfig configures the coordinator process.
type ServiceConfig struct {
	ListenAddr     string
	NodeID         string
	CORSOrigins    []string
	OutboundBuffer int
	Coordinator    Config
	Transport      transport.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:     ":8080",
		NodeID:         "coordinator",
		CORSOrigins:    []string{"*"},
		OutboundBuffer: 16,
		Coordinator:    DefaultConfig(),
		Transport:      transport.DefaultConfig(),
	}
}

// Service binds the coordinator loop to HTTP and the websocket event channel.
type Service struct {
	cfg       ServiceConfig
	coord     *Coordinator
	router    *gin.Engine
	upgrader  websocket.Upgrader
	startedAt time.Time

	peersMu sync.Mutex
	peers   map[ConnID]*wsPeer

	clientCount atomic.Int64
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	def := DefaultServiceConfig()
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if strings.TrimSpace(cfg.NodeID) == "" {
		cfg.NodeID = def.NodeID
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = def.CORSOrigins
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = def.OutboundBuffer
	}
	cfg.Transport = cfg.Transport.WithDefaults()

	s := &Service{
		cfg:       cfg,
		coord:     New(cfg.Coordinator),
		startedAt: time.Now(),
		peers:     make(map[ConnID]*wsPeer),
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		CheckOrigin:      s.checkOrigin,
	}
	s.router = s.newRouter()
	return s
}

func (s *Service) Coordinator() *Coordinator {
	return s.coord
}

func (s *Service) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and blocks until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.cfg.Transport.ValidateServerTransport(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Bool("tls", s.cfg.Transport.TLS.Enabled).Msg("coordinator listening")
	return s.Serve(ctx, ln)
}

// Serve runs the coordinator loop and HTTP server on ln until ctx is done.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.cfg.Transport.ValidateServerTransport(); err != nil {
		_ = ln.Close()
		return err
	}
	tlsCfg, err := s.cfg.Transport.ServerTLSConfig()
	if err != nil {
		_ = ln.Close()
		return err
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- s.coord.Run(loopCtx)
	}()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Transport.HandshakeTimeout,
		TLSConfig:         tlsCfg,
	}
	serveErr := make(chan error, 1)
	go func() {
		if tlsCfg != nil {
			serveErr <- srv.ServeTLS(ln, "", "")
			return
		}
		serveErr <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-loopErr:
		_ = srv.Close()
		return err
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.closeAllPeers()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *Service) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}
	id := ConnID(uuid.NewString())
	peer := newWSPeer(id, conn, s.cfg.OutboundBuffer, s.cfg.Transport.WriteTimeout, s.cfg.Transport.PingInterval)
	s.trackPeer(peer)
	defer s.untrackPeer(id)
	go peer.writePump()

	active := s.clientCount.Add(1)
	log.Debug().Str("conn", string(id)).Str("remote", c.ClientIP()).Int64("active_clients", active).Msg("event channel opened")
	defer func() {
		remaining := s.clientCount.Add(-1)
		log.Debug().Str("conn", string(id)).Int64("active_clients", remaining).Msg("event channel closed")
	}()

	if err := s.coord.Connect(c.Request.Context(), id, peer); err != nil {
		log.Warn().Err(err).Str("conn", string(id)).Msg("coordinator refused connection")
		peer.Close()
		return
	}
	s.serveConn(c.Request.Context(), peer)
	peer.Close()
	if err := s.coord.Disconnect(context.Background(), id); err != nil && !errors.Is(err, ErrCoordinatorStopped) {
		log.Warn().Err(err).Str("conn", string(id)).Msg("disconnect not delivered")
	}
}

// serveConn reads inbound frames and posts them to the coordinator loop in order.
func (s *Service) serveConn(ctx context.Context, peer *wsPeer) {
	conn := peer.conn
	maxBytes := s.cfg.Transport.MaxMessageBytes
	pongWait := s.cfg.Transport.PongWait
	conn.SetReadLimit(maxBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Info().Err(err).Str("conn", string(peer.id)).Msg("event channel read ended")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		env, err := protocol.DecodeInbound(raw, int(maxBytes))
		if err != nil {
			log.Warn().Err(err).Str("conn", string(peer.id)).Msg("inbound frame ignored")
			observability.RecordEvent("malformed")
			continue
		}
		if err := s.dispatchInbound(ctx, peer.id, env); err != nil {
			log.Warn().Err(err).Str("conn", string(peer.id)).Msg("inbound event not delivered")
			if errors.Is(err, ErrCoordinatorStopped) {
				return
			}
		}
	}
}

func (s *Service) dispatchInbound(ctx context.Context, id ConnID, env protocol.Envelope) error {
	switch env.Event {
	case protocol.EventRegisterHost:
		return s.coord.RegisterHost(ctx, id)
	case protocol.EventReady:
		role, err := env.ReadyRole()
		if err != nil {
			return err
		}
		return s.coord.Ready(ctx, id, role)
	default:
		return protocol.ErrDirectionMismatch
	}
}

func (s *Service) trackPeer(p *wsPeer) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	s.peers[p.id] = p
}

func (s *Service) untrackPeer(id ConnID) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	delete(s.peers, id)
}

func (s *Service) closeAllPeers() {
	s.peersMu.Lock()
	peers := make([]*wsPeer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.peersMu.Unlock()
	for _, p := range peers {
		p.Close()
	}
}
