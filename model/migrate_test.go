package model_test

import (
	"testing"
	"time"

	"github.com/kasuganosora/questengine/model"
	"github.com/kasuganosora/questengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	p := &model.QuestPlayer{PlayerID: "5a3e2c1d-0000-4000-8000-000000000001", OnlineMinutes: 90, LastActiveAt: &now}
	require.NoError(t, db.Create(p).Error)

	var found model.QuestPlayer
	require.NoError(t, db.First(&found, "player_id = ?", p.PlayerID).Error)
	assert.Equal(t, int64(90), found.OnlineMinutes)
	require.NotNil(t, found.LastActiveAt)
	assert.True(t, now.Equal(*found.LastActiveAt))
	assert.Nil(t, found.NextDailyReset)

	aq := &model.ActiveQuest{
		PlayerID: p.PlayerID, Kind: "DAILY", QuestID: "q-1",
		Objective: "KILL_NORMAL", LevelMin: 1, LevelMax: 49, RequiredAmount: 500,
	}
	require.NoError(t, db.Create(aq).Error)
	// composite key: same player, other kind
	require.NoError(t, db.Create(&model.ActiveQuest{
		PlayerID: p.PlayerID, Kind: "WEEKLY", QuestID: "q-2",
		Objective: "DROP_MAGIC", LevelMin: 1, LevelMax: 49, RequiredAmount: 30,
	}).Error)
	assert.Error(t, db.Create(&model.ActiveQuest{
		PlayerID: p.PlayerID, Kind: "DAILY", QuestID: "q-3", Objective: "LEVEL_UP", RequiredAmount: 1,
	}).Error)

	var active []model.ActiveQuest
	require.NoError(t, db.Where("player_id = ?", p.PlayerID).Find(&active).Error)
	assert.Len(t, active, 2)

	require.NoError(t, db.Create(&model.QuestReroll{PlayerID: p.PlayerID, Kind: "DAILY", Used: 1}).Error)

	rw := &model.QuestReward{Kind: "DAILY", LevelRange: "1-49", Items: datatypes.JSON(`[{"item":"gold","amount":10}]`)}
	require.NoError(t, db.Create(rw).Error)
	var gotRw model.QuestReward
	require.NoError(t, db.First(&gotRw, "kind = ? AND level_range = ?", "DAILY", "1-49").Error)
	assert.JSONEq(t, `[{"item":"gold","amount":10}]`, string(gotRw.Items))

	h := &model.QuestHistory{PlayerID: p.PlayerID, QuestID: "q-1", Kind: "DAILY", CompletedAt: now}
	require.NoError(t, db.Create(h).Error)
	assert.Greater(t, h.ID, int64(0))

	al := &model.AuditLog{TraceID: "trace-001", Action: "reset_player", CreatedAt: now}
	require.NoError(t, db.Create(al).Error)
}
