package quest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("daily")
	require.NoError(t, err)
	assert.Equal(t, KindDaily, k)

	k, err = ParseKind(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, KindMonthly, k)

	_, err = ParseKind("yearly")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestKind_Text(t *testing.T) {
	b, err := KindWeekly.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "WEEKLY", string(b))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("weekly")))
	assert.Equal(t, KindWeekly, k)

	_, err = Kind(7).MarshalText()
	assert.Error(t, err)
}

func TestParseObjective(t *testing.T) {
	o, err := ParseObjective("kill_normal")
	require.NoError(t, err)
	assert.Equal(t, KillNormal, o)
	assert.Equal(t, GroupKill, o.Group())

	_, err = ParseObjective("KILL_DRAGON")
	assert.True(t, errors.Is(err, ErrUnknownObjective))
}

func TestObjective_Table(t *testing.T) {
	assert.Len(t, objectives, 28)
	assert.True(t, SpendHoursOnline.Internal())
	assert.True(t, CompleteDailyQuests.Internal())
	assert.False(t, KillBoss.Internal())
	assert.Equal(t, GroupDungeon, FinishAllQBlood.Group())
	assert.Equal(t, GroupDrop, DropMythic.Group())
}

func TestTier(t *testing.T) {
	assert.Equal(t, TierElite, TierFromFlags(true, true))
	assert.Equal(t, TierPremium, TierFromFlags(true, false))
	assert.Equal(t, TierBase, TierFromFlags(false, false))

	tier, err := ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, TierBase, tier)
	tier, err = ParseTier("Elite")
	require.NoError(t, err)
	assert.Equal(t, TierElite, tier)
	_, err = ParseTier("gold")
	assert.True(t, errors.Is(err, ErrUnknownTier))
}

func TestBracketForLevel(t *testing.T) {
	cases := map[int]Bracket{
		1: Bracket1to49, 49: Bracket1to49,
		50: Bracket50to64, 64: Bracket50to64,
		65: Bracket65to80, 80: Bracket65to80,
		81: Bracket80Plus, 100: Bracket80Plus, 150: Bracket80Plus,
	}
	for level, want := range cases {
		assert.Equal(t, want, BracketForLevel(level), "level %d", level)
	}
}

func TestBracketLabels(t *testing.T) {
	for _, b := range Brackets {
		got, err := ParseBracket(b.Label())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	assert.Equal(t, "80+", Bracket80Plus.Label())
	assert.Equal(t, 80, Bracket80Plus.Min())
	assert.Equal(t, 100, Bracket80Plus.Max())
	_, err := ParseBracket("10-20")
	assert.True(t, errors.Is(err, ErrUnknownBracket))
}
