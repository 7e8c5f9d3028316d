package rest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/audit"
	"github.com/kasuganosora/questengine/game/quest"
	mw "github.com/kasuganosora/questengine/middleware"
	"github.com/kasuganosora/questengine/scheduler"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HistoryStore lists claimed quests of a player.
type HistoryStore interface {
	History(ctx context.Context, id uuid.UUID, limit int) ([]quest.Completion, error)
}

// RewardTables reads and replaces reward tables.
type RewardTables interface {
	Rewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket) ([]json.RawMessage, error)
	SetRewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket, items []json.RawMessage) error
}

const historyLimit = 20

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	engine  *quest.Engine
	resets  *quest.ResetScheduler
	rewards RewardTables
	history HistoryStore
	sched   *scheduler.Scheduler
	audit   *audit.Service
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler. history and auditSvc may be nil.
func NewAdminHandler(
	engine *quest.Engine,
	resets *quest.ResetScheduler,
	rewards RewardTables,
	history HistoryStore,
	sched *scheduler.Scheduler,
	auditSvc *audit.Service,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		engine:  engine,
		resets:  resets,
		rewards: rewards,
		history: history,
		sched:   sched,
		audit:   auditSvc,
		logger:  logger,
	}
}

// record writes an audit entry for a mutation. It runs after the response so
// the status is known.
func (h *AdminHandler) record(c *gin.Context, start time.Time, action string, playerID uuid.UUID, kind string, req, resp any, err error) {
	e := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		Actor:      c.GetHeader("X-Admin-User"),
		Action:     action,
		Kind:       kind,
		Request:    req,
		Response:   resp,
		Status:     c.Writer.Status(),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if e.Actor == "" {
		e.Actor = "admin"
	}
	if playerID != uuid.Nil {
		e.PlayerID = playerID.String()
	}
	if err != nil {
		e.Error = err.Error()
	}
	h.logger.Info("admin action",
		zap.String("action", action),
		zap.String("actor", e.Actor),
		zap.String("player_id", e.PlayerID),
		zap.String("kind", kind),
		zap.Int("status", e.Status),
		zap.String("trace_id", e.TraceID))
	if h.audit != nil {
		h.audit.Log(e)
	}
}

// Metrics returns engine counters.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cached_players":  len(h.engine.CachedPlayers()),
		"online_players":  len(h.engine.Online()),
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// ListOnline returns every player with an open session.
// GET /api/admin/players
func (h *AdminHandler) ListOnline(c *gin.Context) {
	online := h.engine.Online()
	type playerInfo struct {
		PlayerID uuid.UUID `json:"player_id"`
		Level    int       `json:"level"`
		Tier     string    `json:"tier"`
	}
	result := make([]playerInfo, 0, len(online))
	for _, p := range online {
		result = append(result, playerInfo{PlayerID: p.ID, Level: p.Level, Tier: p.Tier.String()})
	}
	c.JSON(http.StatusOK, gin.H{"players": result, "count": len(result)})
}

// PlayerStatus returns slots, counters, windows and recent history.
// GET /api/admin/players/:id
func (h *AdminHandler) PlayerStatus(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	d, err := h.engine.PlayerData(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	st := statusOf(d)
	if h.history != nil {
		hist, err := h.history.History(c.Request.Context(), id, historyLimit)
		if err != nil {
			h.logger.Warn("load quest history failed", zap.String("player_id", id.String()), zap.Error(err))
		}
		st.History = hist
	}
	c.JSON(http.StatusOK, st)
}

// ResetPlayer closes one window (or all) for one player.
// POST /api/admin/players/:id/reset/:kind
func (h *AdminHandler) ResetPlayer(c *gin.Context) {
	start := time.Now()
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	kinds, ok := parseKinds(c)
	if !ok {
		return
	}
	err := h.engine.ResetPlayer(c.Request.Context(), id, kinds...)
	if err != nil {
		fail(c, err)
	} else {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
	h.record(c, start, "reset_player", id, strings.ToLower(c.Param("kind")), nil, nil, err)
}

// ResetProgress zeroes the progress of one slot.
// POST /api/admin/players/:id/quests/:kind/reset-progress
func (h *AdminHandler) ResetProgress(c *gin.Context) {
	start := time.Now()
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	done, err := h.engine.ResetQuestProgress(c.Request.Context(), id, kind)
	switch {
	case err != nil:
		fail(c, err)
	case !done:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "reason": quest.ReasonNoQuest})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
	h.record(c, start, "reset_progress", id, kindKey(kind), nil, nil, err)
}

// ForceComplete sets one slot to its required amount.
// POST /api/admin/players/:id/quests/:kind/complete
func (h *AdminHandler) ForceComplete(c *gin.Context) {
	start := time.Now()
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	q, done, err := h.engine.ForceComplete(c.Request.Context(), id, kind)
	var resp any
	switch {
	case err != nil:
		fail(c, err)
	case !done:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "reason": quest.ReasonNoQuest})
	default:
		view := viewQuest(q)
		resp = view
		c.JSON(http.StatusOK, gin.H{"ok": true, "quest": view})
	}
	h.record(c, start, "force_complete", id, kindKey(kind), nil, resp, err)
}

// GlobalReset closes one window (or all) for every cached player and
// announces it.
// POST /api/admin/reset/:kind
func (h *AdminHandler) GlobalReset(c *gin.Context) {
	start := time.Now()
	kinds, ok := parseKinds(c)
	if !ok {
		return
	}
	counts := make(map[string]int, len(kinds))
	var err error
	for _, k := range kinds {
		var n int
		n, err = h.resets.ForceReset(c.Request.Context(), k)
		counts[kindKey(k)] = n
		if err != nil {
			break
		}
	}
	if err != nil {
		fail(c, err)
	} else {
		c.JSON(http.StatusOK, gin.H{"ok": true, "players": counts})
	}
	h.record(c, start, "global_reset", uuid.Nil, strings.ToLower(c.Param("kind")), nil, counts, err)
}

func parseRewardKey(c *gin.Context) (quest.Kind, quest.Bracket, bool) {
	kind, ok := parseKind(c)
	if !ok {
		return 0, 0, false
	}
	bracket, err := quest.ParseBracket(c.Param("bracket"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	return kind, bracket, true
}

// GetRewards returns one reward table.
// GET /api/admin/rewards/:kind/:bracket
func (h *AdminHandler) GetRewards(c *gin.Context) {
	kind, bracket, ok := parseRewardKey(c)
	if !ok {
		return
	}
	items, err := h.rewards.Rewards(c.Request.Context(), kind, bracket)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "bracket": bracket.Label(), "items": items})
}

// PutRewards replaces one reward table with the JSON array in the body.
// PUT /api/admin/rewards/:kind/:bracket
func (h *AdminHandler) PutRewards(c *gin.Context) {
	start := time.Now()
	kind, bracket, ok := parseRewardKey(c)
	if !ok {
		return
	}
	var items []json.RawMessage
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array"})
		return
	}
	err := h.rewards.SetRewards(c.Request.Context(), kind, bracket, items)
	if err != nil {
		fail(c, err)
	} else {
		c.JSON(http.StatusOK, gin.H{"ok": true, "items": len(items)})
	}
	h.record(c, start, "set_rewards", uuid.Nil, kindKey(kind),
		gin.H{"bracket": bracket.Label(), "items": items}, nil, err)
}

// ListSchedulerTasks returns all registered periodic tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header against
// a bcrypt hash when keyHash is set, otherwise against adminKey.
// If both are empty all admin endpoints are disabled (503) so the server
// cannot be accidentally deployed without protection.
func AdminAuth(adminKey, keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" && keyHash == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		var ok bool
		if keyHash != "" {
			ok = key != "" && bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) == nil
		} else {
			ok = subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
