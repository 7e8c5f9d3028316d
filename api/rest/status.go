package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/game/quest"
)

// QuestView is a slot as shown to clients and admins.
type QuestView struct {
	quest.Record
	Percent float64 `json:"percent"`
}

// WindowView is the reset and reroll state of one kind.
type WindowView struct {
	Rerolls    int        `json:"rerolls_used"`
	LastReroll *time.Time `json:"last_reroll,omitempty"`
	LastReset  *time.Time `json:"last_reset,omitempty"`
	NextReset  *time.Time `json:"next_reset,omitempty"`
}

// PlayerStatus is the full quest state of one player.
type PlayerStatus struct {
	PlayerID        uuid.UUID             `json:"player_id"`
	Quests          map[string]*QuestView `json:"quests"`
	Windows         map[string]WindowView `json:"windows"`
	CompletedDaily  int                   `json:"completed_daily"`
	CompletedWeekly int                   `json:"completed_weekly"`
	OnlineMinutes   int64                 `json:"online_minutes"`
	OnlineHours     int64                 `json:"online_hours"`
	LastActive      time.Time             `json:"last_active"`
	History         []quest.Completion    `json:"history,omitempty"`
}

func kindKey(k quest.Kind) string { return strings.ToLower(k.String()) }

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func viewQuest(q *quest.Quest) *QuestView {
	if q == nil {
		return nil
	}
	return &QuestView{Record: q.Record(), Percent: q.ProgressPercent()}
}

func statusOf(d *quest.PlayerData) PlayerStatus {
	st := PlayerStatus{
		PlayerID:        d.PlayerID,
		Quests:          make(map[string]*QuestView, len(quest.Kinds)),
		Windows:         make(map[string]WindowView, len(quest.Kinds)),
		CompletedDaily:  d.CompletedDaily,
		CompletedWeekly: d.CompletedWeekly,
		OnlineMinutes:   d.OnlineMinutes,
		OnlineHours:     d.OnlineHours(),
		LastActive:      d.LastActive,
	}
	for _, k := range quest.Kinds {
		st.Quests[kindKey(k)] = viewQuest(d.Quest(k))
		st.Windows[kindKey(k)] = WindowView{
			Rerolls:    d.Rerolls(k),
			LastReroll: optTime(d.LastReroll(k)),
			LastReset:  optTime(d.LastReset(k)),
			NextReset:  optTime(d.NextReset(k)),
		}
	}
	return st
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}

func parseKind(c *gin.Context) (quest.Kind, bool) {
	k, err := quest.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return k, true
}

// parseKinds accepts a kind name or "all".
func parseKinds(c *gin.Context) ([]quest.Kind, bool) {
	if strings.EqualFold(c.Param("kind"), "all") {
		return quest.Kinds[:], true
	}
	k, ok := parseKind(c)
	if !ok {
		return nil, false
	}
	return []quest.Kind{k}, true
}

// fail maps domain errors to 400 and everything else to 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quest.ErrUnknownKind),
		errors.Is(err, quest.ErrUnknownObjective),
		errors.Is(err, quest.ErrUnknownBracket),
		errors.Is(err, quest.ErrUnknownTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
