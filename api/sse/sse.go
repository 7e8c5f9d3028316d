// Package sse streams quest notifications to game clients.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/config"
	"github.com/kasuganosora/questengine/game/notify"
	mw "github.com/kasuganosora/questengine/middleware"
	"go.uber.org/zap"
)

// TypeAnnouncement is the envelope type of operator messages.
const TypeAnnouncement = "announcement"

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	sec       config.SecurityConfig
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, sec: sec, keepalive: 30 * time.Second, logger: logger}
}

// WithKeepalive overrides the keepalive comment interval.
func (h *Handler) WithKeepalive(d time.Duration) *Handler {
	h.keepalive = d
	return h
}

// ServeSSE handles GET /sse?token=<jwt>.
// Player tokens receive their own notifications plus reset announcements.
func (h *Handler) ServeSSE(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.Role != mw.RolePlayer {
		c.JSON(http.StatusForbidden, gin.H{"error": "player token required"})
		return
	}
	playerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "player token required"})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, notify.PlayerChannel(playerID), notify.AnnounceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"player_id\":%q}\n\n", playerID)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventName(msg.Payload), msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// eventName uses the envelope type as SSE event name.
func eventName(payload string) string {
	var env notify.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Type == "" {
		return "message"
	}
	return env.Type
}

// Announce publishes an operator message to every connected client.
func (h *Handler) Announce(ctx context.Context, message string) error {
	data, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}
	env, err := json.Marshal(notify.Envelope{Type: TypeAnnouncement, Data: data})
	if err != nil {
		return err
	}
	return h.pubsub.Publish(ctx, notify.AnnounceChannel, string(env))
}

type announceRequest struct {
	Message string `json:"message" binding:"required"`
}

// PostAnnounce handles POST /api/admin/announce.
func (h *Handler) PostAnnounce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Announce(c.Request.Context(), req.Message); err != nil {
		h.logger.Error("announce failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
