package quest

import (
	"strings"

	"github.com/google/uuid"
)

// Quest is one objective instance held in a player slot.
//
// Invariants: 0 <= progress <= required, completed == (progress >= required),
// claimed implies completed.
type Quest struct {
	id          uuid.UUID
	kind        Kind
	objective   Objective
	levelMin    int
	levelMax    int
	required    int
	progress    int
	description string
	target      string
	completed   bool
	claimed     bool
}

// NewQuest creates an unstarted quest with a fresh id.
// A non-positive required amount is raised to 1.
func NewQuest(kind Kind, objective Objective, levelMin, levelMax, required int, description, target string) *Quest {
	if required < 1 {
		required = 1
	}
	return &Quest{
		id:          uuid.New(),
		kind:        kind,
		objective:   objective,
		levelMin:    levelMin,
		levelMax:    levelMax,
		required:    required,
		description: description,
		target:      target,
	}
}

// Record is the flat, persisted form of a Quest.
type Record struct {
	ID              uuid.UUID `json:"id"`
	Kind            Kind      `json:"kind"`
	Objective       Objective `json:"objective"`
	LevelMin        int       `json:"level_min"`
	LevelMax        int       `json:"level_max"`
	RequiredAmount  int       `json:"required_amount"`
	CurrentProgress int       `json:"current_progress"`
	Description     string    `json:"description"`
	SpecificTarget  string    `json:"specific_target,omitempty"`
	Completed       bool      `json:"completed"`
	RewardClaimed   bool      `json:"reward_claimed"`
}

// Restore rebuilds a Quest from storage. Stored flags are normalized so the
// invariants hold even for rows written by older versions.
func Restore(r Record) *Quest {
	q := &Quest{
		id:          r.ID,
		kind:        r.Kind,
		objective:   r.Objective,
		levelMin:    r.LevelMin,
		levelMax:    r.LevelMax,
		required:    r.RequiredAmount,
		description: r.Description,
		target:      r.SpecificTarget,
	}
	if q.id == uuid.Nil {
		q.id = uuid.New()
	}
	if q.required < 1 {
		q.required = 1
	}
	q.setProgress(max(r.CurrentProgress, 0))
	if r.Completed && !q.completed {
		q.setProgress(q.required)
	}
	q.claimed = r.RewardClaimed && q.completed
	return q
}

func (q *Quest) Record() Record {
	return Record{
		ID:              q.id,
		Kind:            q.kind,
		Objective:       q.objective,
		LevelMin:        q.levelMin,
		LevelMax:        q.levelMax,
		RequiredAmount:  q.required,
		CurrentProgress: q.progress,
		Description:     q.description,
		SpecificTarget:  q.target,
		Completed:       q.completed,
		RewardClaimed:   q.claimed,
	}
}

func (q *Quest) Clone() *Quest {
	if q == nil {
		return nil
	}
	c := *q
	return &c
}

func (q *Quest) ID() uuid.UUID          { return q.id }
func (q *Quest) Kind() Kind             { return q.kind }
func (q *Quest) Objective() Objective   { return q.objective }
func (q *Quest) LevelMin() int          { return q.levelMin }
func (q *Quest) LevelMax() int          { return q.levelMax }
func (q *Quest) RequiredAmount() int    { return q.required }
func (q *Quest) CurrentProgress() int   { return q.progress }
func (q *Quest) Description() string    { return q.description }
func (q *Quest) SpecificTarget() string { return q.target }
func (q *Quest) IsCompleted() bool      { return q.completed }
func (q *Quest) IsRewardClaimed() bool  { return q.claimed }

// AddProgress advances a quest that is not yet completed, capping at the
// required amount. It reports whether this call completed the quest.
func (q *Quest) AddProgress(amount int) bool {
	if q.completed || amount <= 0 {
		return false
	}
	return q.setProgress(min(q.progress+amount, q.required))
}

// SetProgress overwrites progress (admin force-complete). Values are clamped
// to [0, required]. It reports whether this call completed the quest.
func (q *Quest) SetProgress(value int) bool {
	return q.setProgress(max(min(value, q.required), 0))
}

func (q *Quest) setProgress(value int) bool {
	if q.completed {
		// progress never drops below the requirement once completed
		q.progress = q.required
		return false
	}
	q.progress = min(value, q.required)
	if q.progress >= q.required {
		q.completed = true
		return true
	}
	return false
}

// ClaimReward marks a completed quest claimed. It is a no-op otherwise;
// callers check IsCompleted and IsRewardClaimed first.
func (q *Quest) ClaimReward() bool {
	if !q.completed || q.claimed {
		return false
	}
	q.claimed = true
	return true
}

// Reset returns the quest to its assigned state.
func (q *Quest) Reset() {
	q.progress = 0
	q.completed = false
	q.claimed = false
}

// IsApplicableForLevel reports whether level is inside the quest bracket.
func (q *Quest) IsApplicableForLevel(level int) bool {
	return level >= q.levelMin && level <= q.levelMax
}

// MatchesTarget reports whether an event target satisfies the quest's
// specific target. Quests without a target accept any event.
func (q *Quest) MatchesTarget(target string) bool {
	if q.target == "" {
		return true
	}
	return strings.EqualFold(q.target, target)
}

// ProgressPercent is progress / required * 100.
func (q *Quest) ProgressPercent() float64 {
	return float64(q.progress) / float64(q.required) * 100
}
