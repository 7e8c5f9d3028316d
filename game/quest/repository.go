package quest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract of the engine.
type Repository interface {
	// LoadPlayerData returns (nil, nil) when the player has no stored aggregate.
	LoadPlayerData(ctx context.Context, id uuid.UUID) (*PlayerData, error)
	LoadAllPlayerData(ctx context.Context) ([]*PlayerData, error)
	// SavePlayerData upserts counters, timestamps, all three slots and the
	// reroll counters in one unit.
	SavePlayerData(ctx context.Context, d *PlayerData) error
	// LoadActiveQuest and SaveQuest read and write a single slot for admin
	// tooling; the engine itself persists whole aggregates.
	LoadActiveQuest(ctx context.Context, id uuid.UUID, kind Kind) (*Quest, error)
	SaveQuest(ctx context.Context, id uuid.UUID, q *Quest) error
	RecordCompletion(ctx context.Context, c Completion) error
}

// Completion is one claimed quest, kept as history.
type Completion struct {
	PlayerID    uuid.UUID `json:"player_id"`
	QuestID     uuid.UUID `json:"quest_id"`
	Kind        Kind      `json:"kind"`
	Objective   Objective `json:"objective"`
	CompletedAt time.Time `json:"completed_at"`
}

// Dispenser hands out the rewards of a (kind, bracket) pair. Items are opaque
// to the engine.
type Dispenser interface {
	Dispense(ctx context.Context, playerID uuid.UUID, kind Kind, bracket Bracket) ([]json.RawMessage, error)
}

// Player is what the caller knows about a player at call time.
type Player struct {
	ID    uuid.UUID
	Level int
	Tier  Tier
}
