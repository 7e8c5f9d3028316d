package quest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertInvariants(t *testing.T, q *Quest) {
	t.Helper()
	assert.LessOrEqual(t, q.CurrentProgress(), q.RequiredAmount())
	assert.GreaterOrEqual(t, q.CurrentProgress(), 0)
	assert.Equal(t, q.CurrentProgress() >= q.RequiredAmount(), q.IsCompleted())
	if q.IsRewardClaimed() {
		assert.True(t, q.IsCompleted())
	}
}

func TestQuest_AddProgressCapsAtRequirement(t *testing.T) {
	q := NewQuest(KindDaily, KillNormal, 1, 49, 500, "Kill 500 normal mobs", "")
	assert.False(t, q.AddProgress(200))
	assert.Equal(t, 200, q.CurrentProgress())
	assert.True(t, q.AddProgress(1000))
	assert.Equal(t, 500, q.CurrentProgress())
	assert.False(t, q.AddProgress(5), "completed quests ignore further progress")
	assertInvariants(t, q)
}

func TestQuest_SingleReportCompletes(t *testing.T) {
	q := NewQuest(KindDaily, KillNormal, 1, 49, 500, "Kill 500 normal mobs", "")
	assert.True(t, q.AddProgress(500))
	assert.Equal(t, 500, q.CurrentProgress())
	assert.True(t, q.IsCompleted())
}

func TestQuest_InvariantsUnderSequences(t *testing.T) {
	q := NewQuest(KindWeekly, CraftItems, 1, 49, 7, "Craft 7 items", "")
	steps := []func(){
		func() { q.AddProgress(3) },
		func() { q.SetProgress(-4) },
		func() { q.AddProgress(0) },
		func() { q.SetProgress(100) },
		func() { q.ClaimReward() },
		func() { q.AddProgress(3) },
		func() { q.SetProgress(2) },
	}
	for _, step := range steps {
		step()
		assertInvariants(t, q)
	}
	assert.True(t, q.IsRewardClaimed())
	assert.Equal(t, 7, q.CurrentProgress())
}

func TestQuest_SetProgressClamps(t *testing.T) {
	q := NewQuest(KindDaily, OpenChests, 1, 49, 3, "Open 3 chests", "")
	assert.False(t, q.SetProgress(2))
	assert.Equal(t, 2, q.CurrentProgress())
	assert.True(t, q.SetProgress(99))
	assert.Equal(t, 3, q.CurrentProgress())
}

func TestQuest_ClaimRequiresCompletion(t *testing.T) {
	q := NewQuest(KindDaily, LevelUp, 1, 49, 1, "Level up", "")
	assert.False(t, q.ClaimReward())
	assert.False(t, q.IsRewardClaimed())

	q.AddProgress(1)
	assert.True(t, q.ClaimReward())
	assert.False(t, q.ClaimReward(), "second claim is a no-op")
	assert.True(t, q.IsRewardClaimed())
}

func TestQuest_Reset(t *testing.T) {
	q := NewQuest(KindDaily, LevelUp, 1, 49, 1, "Level up", "")
	q.AddProgress(1)
	q.ClaimReward()
	q.Reset()
	assert.Zero(t, q.CurrentProgress())
	assert.False(t, q.IsCompleted())
	assert.False(t, q.IsRewardClaimed())
}

func TestQuest_LevelAndTarget(t *testing.T) {
	q := NewQuest(KindDaily, FinishQInf, 50, 64, 1, "Finish Q3 Inf", "q3")
	assert.True(t, q.IsApplicableForLevel(50))
	assert.True(t, q.IsApplicableForLevel(64))
	assert.False(t, q.IsApplicableForLevel(49))
	assert.False(t, q.IsApplicableForLevel(65))

	assert.True(t, q.MatchesTarget("Q3"))
	assert.False(t, q.MatchesTarget("q4"))
	assert.False(t, q.MatchesTarget(""))

	open := NewQuest(KindDaily, KillBoss, 50, 64, 2, "Kill 2 boss mobs", "")
	assert.True(t, open.MatchesTarget("whatever"))
	assert.True(t, open.MatchesTarget(""))
}

func TestQuest_Percent(t *testing.T) {
	q := NewQuest(KindMonthly, KillElite, 1, 49, 400, "Kill 400 elite mobs", "")
	q.AddProgress(100)
	assert.InDelta(t, 25.0, q.ProgressPercent(), 0.001)
}

func TestRestore_NormalizesFlags(t *testing.T) {
	id := uuid.New()
	q := Restore(Record{
		ID: id, Kind: KindDaily, Objective: KillBoss, LevelMin: 50, LevelMax: 64,
		RequiredAmount: 5, CurrentProgress: 9, Completed: false, RewardClaimed: true,
	})
	require.Equal(t, id, q.ID())
	assert.Equal(t, 5, q.CurrentProgress())
	assert.True(t, q.IsCompleted())
	assert.True(t, q.IsRewardClaimed())

	q = Restore(Record{Kind: KindDaily, Objective: KillBoss, RequiredAmount: 5, CurrentProgress: 1, RewardClaimed: true})
	assert.NotEqual(t, uuid.Nil, q.ID())
	assert.False(t, q.IsRewardClaimed(), "claimed without completion is dropped")
	assertInvariants(t, q)
}

func TestRecord_RoundTrip(t *testing.T) {
	q := NewQuest(KindWeekly, FinishQHell, 65, 80, 1, "Finish Q2 Hell", "q2")
	q.AddProgress(1)
	r := Restore(q.Record())
	assert.Equal(t, q.Record(), r.Record())
}
