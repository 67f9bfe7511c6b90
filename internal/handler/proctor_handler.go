package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/model"
	ws "github.com/skilldesk/skilldesk-backend/internal/websocket"
)

const proctorPingInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ProctorHandler streams integrity events to connected proctor monitors.
type ProctorHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *ProctorHandler {
	return &ProctorHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "proctor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// IntegrityStream godoc
// WS /ws/v1/proctor/integrity
// Upgrades to WebSocket and forwards every attention-loss event as it is
// recorded. The stream is one-way; client frames are drained and discarded.
func (h *ProctorHandler) IntegrityStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	pubsub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.IntegrityChannel())
	defer pubsub.Close()

	h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Proctor connected")

	// Drain reads so the peer's close frame and pongs are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(proctorPingInterval)
	defer ticker.Stop()

	events := pubsub.Channel()
	for {
		select {
		case <-done:
			h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Proctor disconnected")
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case msg, ok := <-events:
			if !ok {
				ws.WriteError(conn, "event stream closed")
				return
			}

			var event model.IntegrityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.log.Warn().Err(err).Str("payload", msg.Payload).Msg("Skipping malformed integrity event")
				continue
			}

			if err := ws.WriteTyped(conn, ws.NewIntegrityFrame(&event)); err != nil {
				h.log.Debug().Err(err).Msg("Proctor write failed, closing stream")
				return
			}
		}
	}
}
