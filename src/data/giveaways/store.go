// Package giveaways persists giveaway records and the dashboard → worker
// action queue that lives on them.
package giveaways

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	GuildID string
	Ended   *bool
	Limit   int
}

// Store is the MySQL-backed giveaway store.
type Store struct {
	db *gorm.DB
}

// NewStore wraps db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, g *giveaway.Giveaway) error {
	if g.Entries == nil {
		g.Entries = giveaway.IDList{}
	}
	if g.Winners == nil {
		g.Winners = giveaway.IDList{}
	}
	return s.db.WithContext(ctx).Create(g).Error
}

// Get loads a record by id.
func (s *Store) Get(ctx context.Context, id string) (*giveaway.Giveaway, error) {
	var g giveaway.Giveaway
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, giveaway.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]giveaway.Giveaway, error) {
	q := s.db.WithContext(ctx).Model(&giveaway.Giveaway{})
	if f.GuildID != "" {
		q = q.Where("guild_id = ?", f.GuildID)
	}
	if f.Ended != nil {
		q = q.Where("ended = ?", *f.Ended)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []giveaway.Giveaway
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetMessage records the rendered announcement reference.
func (s *Store) SetMessage(ctx context.Context, id, messageID string) error {
	res := s.db.WithContext(ctx).Model(&giveaway.Giveaway{}).
		Where("id = ?", id).
		Update("message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return giveaway.ErrNotFound
	}
	return nil
}

// AddEntry appends userID to the entry set in one conditional UPDATE. When
// exclusive is set the set must also be empty, which gives INSTANT giveaways
// exactly one first entrant.
func (s *Store) AddEntry(ctx context.Context, id, userID string, exclusive bool) error {
	q := s.db.WithContext(ctx).Model(&giveaway.Giveaway{}).
		Where("id = ? AND ended = ?", id, false).
		Where("NOT JSON_CONTAINS(entries, JSON_QUOTE(?))", userID)
	if exclusive {
		q = q.Where("JSON_LENGTH(entries) = 0")
	}
	res := q.Update("entries", gorm.Expr("JSON_ARRAY_APPEND(entries, '$', ?)", userID))
	if res.Error != nil {
		return fmt.Errorf("add entry: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return classifyRejectedEntry(g, userID, exclusive)
}

// RemoveEntry removes userID from the entry set. Removing an absent entry is
// not an error.
func (s *Store) RemoveEntry(ctx context.Context, id, userID string) error {
	res := s.db.WithContext(ctx).Model(&giveaway.Giveaway{}).
		Where("id = ? AND ended = ?", id, false).
		Where("JSON_CONTAINS(entries, JSON_QUOTE(?))", userID).
		Update("entries", gorm.Expr("JSON_REMOVE(entries, JSON_UNQUOTE(JSON_SEARCH(entries, 'one', ?)))", userID))
	if res.Error != nil {
		return fmt.Errorf("remove entry: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if g.Ended {
		return giveaway.ErrAlreadyEnded
	}
	return nil
}

// Finish marks the record ended and stores the winners chosen by draw. The
// row is locked for the duration so entries cannot change under the draw.
// It returns ErrAlreadyEnded when another caller got there first.
func (s *Store) Finish(ctx context.Context, id string, draw func(*giveaway.Giveaway) []string) (*giveaway.Giveaway, error) {
	var out giveaway.Giveaway
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, id, &out); err != nil {
			return err
		}
		if out.Ended {
			return giveaway.ErrAlreadyEnded
		}

		winners := giveaway.IDList(draw(&out))
		if winners == nil {
			winners = giveaway.IDList{}
		}
		out.Ended = true
		out.Winners = winners

		return tx.Model(&giveaway.Giveaway{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"ended": true, "winners": winners}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyPatch applies an edit to a running giveaway. Each field is replaced
// whole, so concurrent edits resolve last-writer-wins.
func (s *Store) ApplyPatch(ctx context.Context, id string, p giveaway.Patch, now time.Time) (*giveaway.Giveaway, error) {
	var out giveaway.Giveaway
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRow(tx, id, &out); err != nil {
			return err
		}
		if out.Ended {
			return giveaway.ErrAlreadyEnded
		}

		updates := applyPatch(&out, p, now)
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&giveaway.Giveaway{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&giveaway.Giveaway{}, "id = ?", id).Error
}

// ListExpired returns running STANDARD giveaways whose end time has passed,
// plus INSTANT giveaways that already hold their winning entry but were never
// closed. Records still waiting for their START intent are skipped.
func (s *Store) ListExpired(ctx context.Context, now time.Time, limit int) ([]giveaway.Giveaway, error) {
	var out []giveaway.Giveaway
	err := s.db.WithContext(ctx).
		Where("ended = ?", false).
		Where("(mode = ? AND end_at <= ?) OR (mode = ? AND JSON_LENGTH(entries) > 0)",
			giveaway.ModeStandard, now, giveaway.ModeInstant).
		Where("pending_action IS NULL OR pending_action <> ?", giveaway.ActionStart).
		Order("end_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockRow(tx *gorm.DB, id string, out *giveaway.Giveaway) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(out, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return giveaway.ErrNotFound
	}
	return err
}

func classifyRejectedEntry(g *giveaway.Giveaway, userID string, exclusive bool) error {
	switch {
	case g.Ended:
		return giveaway.ErrAlreadyEnded
	case g.Entries.Contains(userID):
		return giveaway.ErrAlreadyEntered
	case exclusive && len(g.Entries) > 0:
		// Someone else claimed the instant prize; the end is in flight.
		return giveaway.ErrAlreadyEnded
	default:
		return fmt.Errorf("entry for %s was not recorded", userID)
	}
}

// applyPatch mutates g and returns the column updates.
func applyPatch(g *giveaway.Giveaway, p giveaway.Patch, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Prize != nil {
		g.Prize = *p.Prize
		updates["prize"] = g.Prize
	}
	if p.WinnerCount != nil {
		g.WinnerCount = *p.WinnerCount
		updates["winner_count"] = g.WinnerCount
	}
	if d, ok := p.Remaining(); ok {
		g.EndAt = now.Add(d)
		updates["end_at"] = g.EndAt
	}
	return updates
}
