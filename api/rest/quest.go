package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/game/quest"
	mw "github.com/kasuganosora/questengine/middleware"
	"go.uber.org/zap"
)

// QuestHandler serves the gameplay-server API and the player read API.
type QuestHandler struct {
	engine *quest.Engine
	logger *zap.Logger
}

func NewQuestHandler(engine *quest.Engine, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{engine: engine, logger: logger}
}

// playerRef is what gameplay servers send about the acting player.
type playerRef struct {
	PlayerID string `json:"player_id" binding:"required"`
	Level    int    `json:"level" binding:"min=1"`
	Tier     string `json:"tier"`
}

func (r playerRef) player() (quest.Player, error) {
	id, err := uuid.Parse(r.PlayerID)
	if err != nil {
		return quest.Player{}, fmt.Errorf("invalid player_id: %w", err)
	}
	tier, err := quest.ParseTier(r.Tier)
	if err != nil {
		return quest.Player{}, err
	}
	return quest.Player{ID: id, Level: r.Level, Tier: tier}, nil
}

// bindPlayer decodes body into req and resolves its player.
func bindPlayer[T any](c *gin.Context, req *T, ref func(*T) playerRef) (quest.Player, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return quest.Player{}, false
	}
	p, err := ref(req).player()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return quest.Player{}, false
	}
	return p, true
}

type progressRequest struct {
	playerRef
	Objective string `json:"objective" binding:"required"`
	Amount    int    `json:"amount"`
	Target    string `json:"target"`
}

// ReportProgress handles POST /api/quests/progress.
func (h *QuestHandler) ReportProgress(c *gin.Context) {
	var req progressRequest
	p, ok := bindPlayer(c, &req, func(r *progressRequest) playerRef { return r.playerRef })
	if !ok {
		return
	}
	obj, err := quest.ParseObjective(req.Objective)
	if err != nil {
		fail(c, err)
		return
	}
	if obj.Internal() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("objective %s is tracked by the engine", obj)})
		return
	}
	res, err := h.engine.UpdateProgress(c.Request.Context(), p, obj, req.Amount, req.Target)
	if err != nil {
		fail(c, err)
		return
	}
	if res.Advanced == nil {
		res.Advanced = []quest.Record{}
	}
	if res.Completed == nil {
		res.Completed = []quest.Record{}
	}
	c.JSON(http.StatusOK, res)
}

func refOf(r *playerRef) playerRef { return *r }

// Assign handles POST /api/quests/:kind/assign. quest is null when no
// template fits the player's bracket.
func (h *QuestHandler) Assign(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var req playerRef
	p, ok := bindPlayer(c, &req, refOf)
	if !ok {
		return
	}
	q, err := h.engine.AssignQuest(c.Request.Context(), p, kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": viewQuest(q)})
}

// Reroll handles POST /api/quests/:kind/reroll.
func (h *QuestHandler) Reroll(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var req playerRef
	p, ok := bindPlayer(c, &req, refOf)
	if !ok {
		return
	}
	q, rerolled, err := h.engine.RerollQuest(c.Request.Context(), p, kind)
	if err != nil {
		fail(c, err)
		return
	}
	if !rerolled {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "reason": "reroll_unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "quest": viewQuest(q)})
}

type claimRequest struct {
	playerRef
	// HasSpace is the gameplay server's inventory check; absent means room.
	HasSpace *bool `json:"has_space"`
}

// Claim handles POST /api/quests/:kind/claim.
func (h *QuestHandler) Claim(c *gin.Context) {
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	var req claimRequest
	p, ok := bindPlayer(c, &req, func(r *claimRequest) playerRef { return r.playerRef })
	if !ok {
		return
	}
	var hasSpace func() bool
	if req.HasSpace != nil {
		space := *req.HasSpace
		hasSpace = func() bool { return space }
	}
	res, err := h.engine.ClaimReward(c.Request.Context(), p, kind, hasSpace)
	if err != nil {
		fail(c, err)
		return
	}
	if !res.OK {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status handles GET /api/players/:id/quests.
func (h *QuestHandler) Status(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	h.writeStatus(c, id)
}

// MyQuests handles GET /api/me/quests for player tokens.
func (h *QuestHandler) MyQuests(c *gin.Context) {
	id, ok := mw.GetPlayerID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "player token required"})
		return
	}
	h.writeStatus(c, id)
}

func (h *QuestHandler) writeStatus(c *gin.Context, id uuid.UUID) {
	d, err := h.engine.PlayerData(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statusOf(d))
}

// Login handles POST /api/presence/login.
func (h *QuestHandler) Login(c *gin.Context) {
	var req playerRef
	p, ok := bindPlayer(c, &req, refOf)
	if !ok {
		return
	}
	if err := h.engine.Login(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": true})
}

// Heartbeat handles POST /api/presence/heartbeat. online is false when the
// player never logged in.
func (h *QuestHandler) Heartbeat(c *gin.Context) {
	var req playerRef
	p, ok := bindPlayer(c, &req, refOf)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": h.engine.Heartbeat(p)})
}

type logoutRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

// Logout handles POST /api/presence/logout.
func (h *QuestHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := uuid.Parse(req.PlayerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player_id"})
		return
	}
	if err := h.engine.Logout(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": false})
}
