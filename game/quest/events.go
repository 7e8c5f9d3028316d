package quest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Signal payloads passed to hook handlers.

type AssignedEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Quest    Record    `json:"quest"`
	Rerolled bool      `json:"rerolled"`
}

type CompletedEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Quest    Record    `json:"quest"`
}

type RewardsEvent struct {
	PlayerID uuid.UUID         `json:"player_id"`
	Kind     Kind              `json:"kind"`
	Bracket  string            `json:"bracket"`
	Items    []json.RawMessage `json:"items"`
}

type ResetEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Kind     Kind      `json:"kind"`
	At       time.Time `json:"at"`
}

// BroadcastEvent is published once per reset boundary, not per player.
type BroadcastEvent struct {
	Kind     Kind      `json:"kind"`
	Boundary time.Time `json:"boundary"`
}

type PresenceEvent struct {
	PlayerID uuid.UUID `json:"player_id"`
	Online   bool      `json:"online"`
}
