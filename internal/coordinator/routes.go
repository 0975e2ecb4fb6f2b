package coordinator

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/readyctl/internal/observability"
	"github.com/danmuck/readyctl/internal/protocol"
	"github.com/danmuck/readyctl/internal/transport"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func (s *Service) newRouter() *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(s.cfg.NodeID))
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	r.SetHTMLTemplate(template.Must(template.New("pages").Parse(pageTemplates)))

	r.GET("/", s.handleIndex)
	r.GET("/client", s.handleClient)
	r.GET(transport.EventChannelPath, s.handleWS)
	r.GET("/status", s.handleStatus)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range origins {
		if strings.TrimSpace(origin) == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *Service) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{
		"Roles": []protocol.Role{protocol.RoleHost, protocol.RoleParticipant},
	})
}

// handleClient renders the web actor page; role defaults to participant.
func (s *Service) handleClient(c *gin.Context) {
	role := protocol.RoleParticipant
	if raw := c.Query("role"); raw != "" {
		parsed, err := protocol.ParseRole(raw)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		role = parsed
	}
	c.HTML(http.StatusOK, "client", gin.H{
		"Role":     string(role),
		"PeerRole": string(role.Peer()),
		"WSURL":    eventChannelURL(c.Request),
	})
}

func (s *Service) handleStatus(c *gin.Context) {
	snap, err := s.coord.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Service) handleHealth(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	select {
	case <-s.coord.Done():
		status = "stopped"
		code = http.StatusServiceUnavailable
	default:
	}
	c.JSON(code, gin.H{
		"status":    status,
		"uptime":    time.Since(s.startedAt).String(),
		"component": s.cfg.NodeID,
		"version":   version,
		"clients":   s.clientCount.Load(),
	})
}

// eventChannelURL derives the websocket address from the request host.
func eventChannelURL(r *http.Request) string {
	scheme := "ws"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + transport.EventChannelPath
}
