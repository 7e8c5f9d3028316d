package quest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownKind      = errors.New("quest: unknown quest kind")
	ErrUnknownObjective = errors.New("quest: unknown objective")
	ErrUnknownBracket   = errors.New("quest: unknown level bracket")
	ErrUnknownTier      = errors.New("quest: unknown tier")
)

// Kind selects the reset cadence of a quest slot.
type Kind int

const (
	KindDaily Kind = iota
	KindWeekly
	KindMonthly

	kindCount = 3
)

// Kinds lists every kind in slot order.
var Kinds = [kindCount]Kind{KindDaily, KindWeekly, KindMonthly}

var kindNames = [kindCount]string{"DAILY", "WEEKLY", "MONTHLY"}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the three slot kinds.
func (k Kind) Valid() bool { return k >= 0 && k < kindCount }

// ParseKind accepts "daily", "WEEKLY", "Monthly" and so on.
func ParseKind(s string) (Kind, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == up {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q (want daily, weekly or monthly)", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Tier is the permission tier resolved by the caller; it drives the reroll quota.
type Tier int

const (
	TierBase Tier = iota
	TierPremium
	TierElite
)

var tierNames = map[Tier]string{TierBase: "base", TierPremium: "premium", TierElite: "elite"}

func (t Tier) String() string {
	if n, ok := tierNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// TierFromFlags folds the two permission checks into a tier. Elite wins.
func TierFromFlags(premium, elite bool) Tier {
	switch {
	case elite:
		return TierElite
	case premium:
		return TierPremium
	default:
		return TierBase
	}
}

// ParseTier parses "base", "premium" or "elite"; the empty string is base.
func ParseTier(s string) (Tier, error) {
	low := strings.ToLower(strings.TrimSpace(s))
	if low == "" {
		return TierBase, nil
	}
	for t, n := range tierNames {
		if n == low {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownTier, s)
}

// Objective is the category of gameplay action a quest counts.
type Objective string

const (
	KillCurrentExpoNormal   Objective = "KILL_CURRENT_EXPO_NORMAL"
	KillCurrentExpoElite    Objective = "KILL_CURRENT_EXPO_ELITE"
	KillCurrentExpoMiniBoss Objective = "KILL_CURRENT_EXPO_MINI_BOSS"
	KillNormal              Objective = "KILL_NORMAL"
	KillElite               Objective = "KILL_ELITE"
	KillMiniBoss            Objective = "KILL_MINI_BOSS"
	KillBoss                Objective = "KILL_BOSS"
	KillPlayers             Objective = "KILL_PLAYERS"

	DropMagic                  Objective = "DROP_MAGIC"
	DropExtraordinary          Objective = "DROP_EXTRAORDINARY"
	DropLegendary              Objective = "DROP_LEGENDARY"
	DropUnique                 Objective = "DROP_UNIQUE"
	DropMythic                 Objective = "DROP_MYTHIC"
	DropQuestCraftingMaterials Objective = "DROP_QUEST_CRAFTING_MATERIALS"
	DropCraftingMaterials      Objective = "DROP_CRAFTING_MATERIALS"

	FinishQInf      Objective = "FINISH_Q_INF"
	FinishQHell     Objective = "FINISH_Q_HELL"
	FinishQBlood    Objective = "FINISH_Q_BLOOD"
	FinishAllQInf   Objective = "FINISH_ALL_Q_INF"
	FinishAllQHell  Objective = "FINISH_ALL_Q_HELL"
	FinishAllQBlood Objective = "FINISH_ALL_Q_BLOOD"

	LevelUp              Objective = "LEVEL_UP"
	CraftItems           Objective = "CRAFT_ITEMS"
	OpenChests           Objective = "OPEN_CHESTS"
	OpenLootboxes        Objective = "OPEN_LOOTBOXES"
	CompleteDailyQuests  Objective = "COMPLETE_DAILY_QUESTS"
	CompleteWeeklyQuests Objective = "COMPLETE_WEEKLY_QUESTS"
	SpendHoursOnline     Objective = "SPEND_HOURS_ONLINE"
)

// ObjectiveGroup is the coarse family of an objective.
type ObjectiveGroup string

const (
	GroupKill    ObjectiveGroup = "kill"
	GroupDrop    ObjectiveGroup = "drop"
	GroupDungeon ObjectiveGroup = "dungeon"
	GroupOther   ObjectiveGroup = "other"
)

type objectiveSpec struct {
	group ObjectiveGroup
	// internal objectives are fed by the engine itself (claims, online ticks),
	// never by external event reporters.
	internal bool
}

var objectives = map[Objective]objectiveSpec{
	KillCurrentExpoNormal:   {group: GroupKill},
	KillCurrentExpoElite:    {group: GroupKill},
	KillCurrentExpoMiniBoss: {group: GroupKill},
	KillNormal:              {group: GroupKill},
	KillElite:               {group: GroupKill},
	KillMiniBoss:            {group: GroupKill},
	KillBoss:                {group: GroupKill},
	KillPlayers:             {group: GroupKill},

	DropMagic:                  {group: GroupDrop},
	DropExtraordinary:          {group: GroupDrop},
	DropLegendary:              {group: GroupDrop},
	DropUnique:                 {group: GroupDrop},
	DropMythic:                 {group: GroupDrop},
	DropQuestCraftingMaterials: {group: GroupDrop},
	DropCraftingMaterials:      {group: GroupDrop},

	FinishQInf:      {group: GroupDungeon},
	FinishQHell:     {group: GroupDungeon},
	FinishQBlood:    {group: GroupDungeon},
	FinishAllQInf:   {group: GroupDungeon},
	FinishAllQHell:  {group: GroupDungeon},
	FinishAllQBlood: {group: GroupDungeon},

	LevelUp:              {group: GroupOther},
	CraftItems:           {group: GroupOther},
	OpenChests:           {group: GroupOther},
	OpenLootboxes:        {group: GroupOther},
	CompleteDailyQuests:  {group: GroupOther, internal: true},
	CompleteWeeklyQuests: {group: GroupOther, internal: true},
	SpendHoursOnline:     {group: GroupOther, internal: true},
}

// Valid reports whether o is a known objective.
func (o Objective) Valid() bool {
	_, ok := objectives[o]
	return ok
}

// Group returns the family of o, or "" when o is unknown.
func (o Objective) Group() ObjectiveGroup { return objectives[o].group }

// Internal reports whether only the engine advances o.
func (o Objective) Internal() bool { return objectives[o].internal }

// ParseObjective normalizes case and validates against the known set.
func ParseObjective(s string) (Objective, error) {
	o := Objective(strings.ToUpper(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownObjective, s)
	}
	return o, nil
}

// Bracket is one of the four fixed player-level ranges.
type Bracket int

const (
	Bracket1to49 Bracket = iota
	Bracket50to64
	Bracket65to80
	Bracket80Plus

	bracketCount = 4
)

// Brackets lists every bracket in ascending order.
var Brackets = [bracketCount]Bracket{Bracket1to49, Bracket50to64, Bracket65to80, Bracket80Plus}

var bracketRanges = [bracketCount]struct {
	min, max int
	label    string
}{
	{1, 49, "1-49"},
	{50, 64, "50-64"},
	{65, 80, "65-80"},
	{80, 100, "80+"},
}

// BracketForLevel resolves a level to exactly one bracket. 80 belongs to 65-80;
// anything above 80 (and anything the ranges do not cover) falls into 80+.
func BracketForLevel(level int) Bracket {
	switch {
	case level < 50:
		return Bracket1to49
	case level < 65:
		return Bracket50to64
	case level <= 80:
		return Bracket65to80
	default:
		return Bracket80Plus
	}
}

func (b Bracket) Valid() bool { return b >= 0 && b < bracketCount }
func (b Bracket) Min() int    { return bracketRanges[b].min }
func (b Bracket) Max() int    { return bracketRanges[b].max }

// Label is the reward-table key for the bracket.
func (b Bracket) Label() string {
	if !b.Valid() {
		return fmt.Sprintf("Bracket(%d)", int(b))
	}
	return bracketRanges[b].label
}

func (b Bracket) String() string { return b.Label() }

// ParseBracket accepts a bracket label such as "50-64" or "80+".
func ParseBracket(label string) (Bracket, error) {
	l := strings.TrimSpace(label)
	for i, r := range bracketRanges {
		if r.label == l {
			return Bracket(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownBracket, label)
}
