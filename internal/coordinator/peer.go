package coordinator

import (
	"sync"
	"time"

	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// wsPeer owns one websocket connection. Coordinator sends are buffered and
// written by writePump; the connection's reader runs in Service.serveConn.
type wsPeer struct {
	id   ConnID
	conn *websocket.Conn

	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	pingInterval time.Duration
}

func newWSPeer(id ConnID, conn *websocket.Conn, buffer int, writeTimeout, pingInterval time.Duration) *wsPeer {
	if buffer <= 0 {
		buffer = 16
	}
	return &wsPeer{
		id:           id,
		conn:         conn,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

// Send enqueues one frame without blocking.
func (p *wsPeer) Send(env protocol.Envelope) bool {
	raw, err := protocol.Encode(env)
	if err != nil {
		log.Error().Err(err).Str("conn", string(p.id)).Msg("encode outbound frame")
		return false
	}
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- raw:
		return true
	case <-p.done:
		return false
	default:
		log.Warn().Str("conn", string(p.id)).Str("event", string(env.Event)).Msg("send buffer full, frame dropped")
		return false
	}
}

func (p *wsPeer) writePump() {
	ticker := time.NewTicker(p.pingInterval)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()
	for {
		select {
		case raw := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Debug().Err(err).Str("conn", string(p.id)).Msg("write failed")
				p.Close()
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.Close()
				return
			}
		case <-p.done:
			_ = p.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(p.writeTimeout),
			)
			return
		}
	}
}

// Close stops the write pump, which closes the underlying connection.
func (p *wsPeer) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
