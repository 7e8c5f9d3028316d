package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuestPlayer is the per-player aggregate row: counters, presence and the
// reset window of each kind.
type QuestPlayer struct {
	PlayerID        string     `gorm:"primaryKey;size:36" json:"player_id"`
	CompletedDaily  int        `gorm:"not null;default:0" json:"completed_daily"`
	CompletedWeekly int        `gorm:"not null;default:0" json:"completed_weekly"`
	OnlineMinutes   int64      `gorm:"not null;default:0" json:"online_minutes"`
	LastActiveAt    *time.Time `json:"last_active_at"`

	LastDailyReset   *time.Time `json:"last_daily_reset"`
	NextDailyReset   *time.Time `json:"next_daily_reset"`
	LastWeeklyReset  *time.Time `json:"last_weekly_reset"`
	NextWeeklyReset  *time.Time `json:"next_weekly_reset"`
	LastMonthlyReset *time.Time `json:"last_monthly_reset"`
	NextMonthlyReset *time.Time `json:"next_monthly_reset"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ActiveQuest is the quest held in one slot. A player has at most one row
// per kind.
type ActiveQuest struct {
	PlayerID        string `gorm:"primaryKey;size:36" json:"player_id"`
	Kind            string `gorm:"primaryKey;size:16" json:"kind"`
	QuestID         string `gorm:"size:36;not null;index:idx_active_quest_id" json:"quest_id"`
	Objective       string `gorm:"size:48;not null" json:"objective"`
	LevelMin        int    `gorm:"not null" json:"level_min"`
	LevelMax        int    `gorm:"not null" json:"level_max"`
	RequiredAmount  int    `gorm:"not null" json:"required_amount"`
	CurrentProgress int    `gorm:"not null;default:0" json:"current_progress"`
	Description     string `gorm:"size:255" json:"description"`
	SpecificTarget  string `gorm:"size:64" json:"specific_target"`
	Completed       bool   `gorm:"not null;default:false" json:"completed"`
	RewardClaimed   bool   `gorm:"not null;default:false" json:"reward_claimed"`
}

// QuestReroll counts rerolls used in the current window of one kind.
type QuestReroll struct {
	PlayerID     string     `gorm:"primaryKey;size:36" json:"player_id"`
	Kind         string     `gorm:"primaryKey;size:16" json:"kind"`
	Used         int        `gorm:"not null;default:0" json:"used"`
	LastRerollAt *time.Time `json:"last_reroll_at"`
}

// QuestReward is the reward table of one (kind, level range) pair. Items
// are opaque JSON values handed to the delivery sink.
type QuestReward struct {
	Kind       string         `gorm:"primaryKey;size:16" json:"kind"`
	LevelRange string         `gorm:"primaryKey;size:16" json:"level_range"`
	Items      datatypes.JSON `json:"items"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuestHistory is one claimed quest.
type QuestHistory struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID    string    `gorm:"size:36;not null;index:idx_history_player" json:"player_id"`
	QuestID     string    `gorm:"size:36;not null" json:"quest_id"`
	Kind        string    `gorm:"size:16;not null" json:"kind"`
	Objective   string    `gorm:"size:48" json:"objective"`
	CompletedAt time.Time `gorm:"index:idx_history_completed" json:"completed_at"`
}
