package giveaways

import (
	"context"
	"fmt"
	"time"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// The relay queue is the only channel from the dashboard to the worker. The
// dashboard enqueues at most one intent per record; the worker lists pending
// intents, runs them and acknowledges each one whether it succeeded or not.

// EnqueueStart inserts a new record carrying a START intent. The record body is
// the full giveaway definition; the worker announces it on its next tick.
func (s *Store) EnqueueStart(ctx context.Context, g *giveaway.Giveaway, now time.Time) error {
	start := giveaway.ActionStart
	g.PendingAction = &start
	g.PendingAt = &now
	return s.Create(ctx, g)
}

// Enqueue attaches an intent to an existing record. It fails with
// ErrActionPending while another intent is outstanding.
func (s *Store) Enqueue(ctx context.Context, id string, action giveaway.Action, patch *giveaway.Patch, now time.Time) error {
	if err := checkEnqueue(action, patch); err != nil {
		return err
	}

	var patchValue interface{}
	if patch != nil {
		patchValue = *patch
	}

	res := s.db.WithContext(ctx).Model(&giveaway.Giveaway{}).
		Where("id = ? AND pending_action IS NULL", id).
		Updates(map[string]interface{}{
			"pending_action": action,
			"pending_patch":  patchValue,
			"pending_at":     now,
		})
	if res.Error != nil {
		return fmt.Errorf("enqueue %s: %w", action, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return giveaway.ErrActionPending
}

// Pending lists outstanding intents, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]giveaway.Giveaway, error) {
	var out []giveaway.Giveaway
	err := s.db.WithContext(ctx).
		Where("pending_action IS NOT NULL").
		Order("pending_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ack clears the intent if it is still the one that was attempted. Acking a
// deleted record is a no-op.
func (s *Store) Ack(ctx context.Context, id string, action giveaway.Action) error {
	return s.db.WithContext(ctx).Model(&giveaway.Giveaway{}).
		Where("id = ? AND pending_action = ?", id, action).
		Updates(map[string]interface{}{
			"pending_action": nil,
			"pending_patch":  nil,
			"pending_at":     nil,
		}).Error
}

func checkEnqueue(action giveaway.Action, patch *giveaway.Patch) error {
	if !action.Valid() || action == giveaway.ActionStart {
		return &giveaway.ValidationError{Field: "action", Msg: fmt.Sprintf("cannot enqueue %q on an existing giveaway", action)}
	}
	if action == giveaway.ActionEdit {
		if patch == nil {
			return &giveaway.ValidationError{Field: "patch", Msg: "EDIT requires a patch"}
		}
		return patch.Validate()
	}
	return nil
}
