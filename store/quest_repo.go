// Package store persists quest state with gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/game/quest"
	"github.com/kasuganosora/questengine/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestRepo implements quest.Repository and the reward table store.
type QuestRepo struct {
	db *gorm.DB
}

var _ quest.Repository = (*QuestRepo)(nil)

func NewQuestRepo(db *gorm.DB) *QuestRepo {
	return &QuestRepo{db: db}
}

func (r *QuestRepo) LoadPlayerData(ctx context.Context, id uuid.UUID) (*quest.PlayerData, error) {
	db := r.db.WithContext(ctx)
	var row model.QuestPlayer
	err := db.First(&row, "player_id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", id, err)
	}

	var active []model.ActiveQuest
	if err := db.Where("player_id = ?", row.PlayerID).Find(&active).Error; err != nil {
		return nil, fmt.Errorf("load active quests %s: %w", id, err)
	}
	var rerolls []model.QuestReroll
	if err := db.Where("player_id = ?", row.PlayerID).Find(&rerolls).Error; err != nil {
		return nil, fmt.Errorf("load rerolls %s: %w", id, err)
	}
	return assemble(row, active, rerolls)
}

func (r *QuestRepo) LoadAllPlayerData(ctx context.Context) ([]*quest.PlayerData, error) {
	db := r.db.WithContext(ctx)
	var players []model.QuestPlayer
	if err := db.Order("player_id").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	var active []model.ActiveQuest
	if err := db.Find(&active).Error; err != nil {
		return nil, fmt.Errorf("load active quests: %w", err)
	}
	var rerolls []model.QuestReroll
	if err := db.Find(&rerolls).Error; err != nil {
		return nil, fmt.Errorf("load rerolls: %w", err)
	}

	activeBy := make(map[string][]model.ActiveQuest)
	for _, a := range active {
		activeBy[a.PlayerID] = append(activeBy[a.PlayerID], a)
	}
	rerollBy := make(map[string][]model.QuestReroll)
	for _, rr := range rerolls {
		rerollBy[rr.PlayerID] = append(rerollBy[rr.PlayerID], rr)
	}

	out := make([]*quest.PlayerData, 0, len(players))
	for _, p := range players {
		d, err := assemble(p, activeBy[p.PlayerID], rerollBy[p.PlayerID])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// SavePlayerData writes the aggregate, its slots and reroll counters in one
// transaction. Empty slots delete the stored row of that kind.
func (r *QuestRepo) SavePlayerData(ctx context.Context, d *quest.PlayerData) error {
	pid := d.PlayerID.String()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := playerRow(d)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("save player %s: %w", pid, err)
		}
		for _, kind := range quest.Kinds {
			q := d.Quest(kind)
			if q == nil {
				if err := tx.Where("player_id = ? AND kind = ?", pid, kind.String()).
					Delete(&model.ActiveQuest{}).Error; err != nil {
					return fmt.Errorf("clear %s slot %s: %w", kind, pid, err)
				}
				continue
			}
			aq := activeRow(pid, q.Record())
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&aq).Error; err != nil {
				return fmt.Errorf("save %s slot %s: %w", kind, pid, err)
			}
		}
		rerolls := make([]model.QuestReroll, 0, len(quest.Kinds))
		for _, kind := range quest.Kinds {
			rerolls = append(rerolls, model.QuestReroll{
				PlayerID:     pid,
				Kind:         kind.String(),
				Used:         d.Rerolls(kind),
				LastRerollAt: timePtr(d.LastReroll(kind)),
			})
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rerolls).Error; err != nil {
			return fmt.Errorf("save rerolls %s: %w", pid, err)
		}
		return nil
	})
}

func (r *QuestRepo) LoadActiveQuest(ctx context.Context, id uuid.UUID, kind quest.Kind) (*quest.Quest, error) {
	var row model.ActiveQuest
	err := r.db.WithContext(ctx).First(&row, "player_id = ? AND kind = ?", id.String(), kind.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s quest %s: %w", kind, id, err)
	}
	rec, err := activeRecord(row)
	if err != nil {
		return nil, err
	}
	return quest.Restore(rec), nil
}

func (r *QuestRepo) SaveQuest(ctx context.Context, id uuid.UUID, q *quest.Quest) error {
	row := activeRow(id.String(), q.Record())
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("save quest %s: %w", q.ID(), err)
	}
	return nil
}

func (r *QuestRepo) RecordCompletion(ctx context.Context, c quest.Completion) error {
	row := model.QuestHistory{
		PlayerID:    c.PlayerID.String(),
		QuestID:     c.QuestID.String(),
		Kind:        c.Kind.String(),
		Objective:   string(c.Objective),
		CompletedAt: c.CompletedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record completion %s: %w", c.QuestID, err)
	}
	return nil
}

// History returns the latest claimed quests of a player, newest first.
func (r *QuestRepo) History(ctx context.Context, id uuid.UUID, limit int) ([]quest.Completion, error) {
	var rows []model.QuestHistory
	err := r.db.WithContext(ctx).
		Where("player_id = ?", id.String()).
		Order("completed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", id, err)
	}
	out := make([]quest.Completion, 0, len(rows))
	for _, row := range rows {
		kind, err := quest.ParseKind(row.Kind)
		if err != nil {
			return nil, err
		}
		qid, _ := uuid.Parse(row.QuestID)
		out = append(out, quest.Completion{
			PlayerID:    id,
			QuestID:     qid,
			Kind:        kind,
			Objective:   quest.Objective(row.Objective),
			CompletedAt: row.CompletedAt,
		})
	}
	return out, nil
}

// LoadRewards returns the reward items of (kind, bracket); a missing table
// yields an empty list.
func (r *QuestRepo) LoadRewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket) ([]json.RawMessage, error) {
	var row model.QuestReward
	err := r.db.WithContext(ctx).First(&row, "kind = ? AND level_range = ?", kind.String(), bracket.Label()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load rewards %s/%s: %w", kind, bracket, err)
	}
	if len(row.Items) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(row.Items, &items); err != nil {
		return nil, fmt.Errorf("decode rewards %s/%s: %w", kind, bracket, err)
	}
	return items, nil
}

// SaveRewards replaces the reward items of (kind, bracket).
func (r *QuestRepo) SaveRewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode rewards %s/%s: %w", kind, bracket, err)
	}
	row := model.QuestReward{Kind: kind.String(), LevelRange: bracket.Label(), Items: datatypes.JSON(b)}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("save rewards %s/%s: %w", kind, bracket, err)
	}
	return nil
}

func assemble(row model.QuestPlayer, active []model.ActiveQuest, rerolls []model.QuestReroll) (*quest.PlayerData, error) {
	id, err := uuid.Parse(row.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("player id %q: %w", row.PlayerID, err)
	}
	d := quest.NewPlayerData(id, timeVal(row.LastActiveAt))
	d.CompletedDaily = row.CompletedDaily
	d.CompletedWeekly = row.CompletedWeekly
	d.OnlineMinutes = row.OnlineMinutes
	d.RestoreReset(quest.KindDaily, timeVal(row.LastDailyReset), timeVal(row.NextDailyReset))
	d.RestoreReset(quest.KindWeekly, timeVal(row.LastWeeklyReset), timeVal(row.NextWeeklyReset))
	d.RestoreReset(quest.KindMonthly, timeVal(row.LastMonthlyReset), timeVal(row.NextMonthlyReset))

	for _, a := range active {
		rec, err := activeRecord(a)
		if err != nil {
			return nil, err
		}
		d.SetQuest(quest.Restore(rec))
	}
	for _, rr := range rerolls {
		kind, err := quest.ParseKind(rr.Kind)
		if err != nil {
			return nil, fmt.Errorf("reroll row of %s: %w", row.PlayerID, err)
		}
		d.RestoreReroll(kind, rr.Used, timeVal(rr.LastRerollAt))
	}
	return d, nil
}

func playerRow(d *quest.PlayerData) model.QuestPlayer {
	return model.QuestPlayer{
		PlayerID:         d.PlayerID.String(),
		CompletedDaily:   d.CompletedDaily,
		CompletedWeekly:  d.CompletedWeekly,
		OnlineMinutes:    d.OnlineMinutes,
		LastActiveAt:     timePtr(d.LastActive),
		LastDailyReset:   timePtr(d.LastReset(quest.KindDaily)),
		NextDailyReset:   timePtr(d.NextReset(quest.KindDaily)),
		LastWeeklyReset:  timePtr(d.LastReset(quest.KindWeekly)),
		NextWeeklyReset:  timePtr(d.NextReset(quest.KindWeekly)),
		LastMonthlyReset: timePtr(d.LastReset(quest.KindMonthly)),
		NextMonthlyReset: timePtr(d.NextReset(quest.KindMonthly)),
	}
}

func activeRow(playerID string, rec quest.Record) model.ActiveQuest {
	return model.ActiveQuest{
		PlayerID:        playerID,
		Kind:            rec.Kind.String(),
		QuestID:         rec.ID.String(),
		Objective:       string(rec.Objective),
		LevelMin:        rec.LevelMin,
		LevelMax:        rec.LevelMax,
		RequiredAmount:  rec.RequiredAmount,
		CurrentProgress: rec.CurrentProgress,
		Description:     rec.Description,
		SpecificTarget:  rec.SpecificTarget,
		Completed:       rec.Completed,
		RewardClaimed:   rec.RewardClaimed,
	}
}

func activeRecord(row model.ActiveQuest) (quest.Record, error) {
	kind, err := quest.ParseKind(row.Kind)
	if err != nil {
		return quest.Record{}, fmt.Errorf("active quest of %s: %w", row.PlayerID, err)
	}
	qid, err := uuid.Parse(row.QuestID)
	if err != nil {
		// Restore assigns a fresh id
		qid = uuid.Nil
	}
	return quest.Record{
		ID:              qid,
		Kind:            kind,
		Objective:       quest.Objective(row.Objective),
		LevelMin:        row.LevelMin,
		LevelMax:        row.LevelMax,
		RequiredAmount:  row.RequiredAmount,
		CurrentProgress: row.CurrentProgress,
		Description:     row.Description,
		SpecificTarget:  row.SpecificTarget,
		Completed:       row.Completed,
		RewardClaimed:   row.RewardClaimed,
	}, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
