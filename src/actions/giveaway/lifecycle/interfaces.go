// Package lifecycle runs the giveaway state machine: start, end, reroll,
// edit, delete, and the entry ledger behind the join and leave buttons.
package lifecycle

import (
	"context"
	"time"

	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Store is the persistence the controller and ledger need.
type Store interface {
	Create(ctx context.Context, g *giveaway.Giveaway) error
	Get(ctx context.Context, id string) (*giveaway.Giveaway, error)
	SetMessage(ctx context.Context, id, messageID string) error
	AddEntry(ctx context.Context, id, userID string, exclusive bool) error
	RemoveEntry(ctx context.Context, id, userID string) error
	Finish(ctx context.Context, id string, draw func(*giveaway.Giveaway) []string) (*giveaway.Giveaway, error)
	ApplyPatch(ctx context.Context, id string, p giveaway.Patch, now time.Time) (*giveaway.Giveaway, error)
	Delete(ctx context.Context, id string) error
}

// Notifier renders announcements. Update and delete return giveaway.ErrNotFound
// when the message or channel is gone.
type Notifier interface {
	PostAnnouncement(ctx context.Context, channelID string, a Announcement) (messageID string, err error)
	UpdateAnnouncement(ctx context.Context, channelID, messageID string, a Announcement) error
	DeleteAnnouncement(ctx context.Context, channelID, messageID string) error
	PostMessage(ctx context.Context, channelID, content string) error
	DirectMessage(ctx context.Context, userID, content string) error
}

// EventSink receives audit events.
type EventSink interface {
	Emit(ctx context.Context, kind, giveawayID string, fields map[string]interface{}) error
}

// Eligibility decides whether a participant may enter.
type Eligibility interface {
	Evaluate(ctx context.Context, p eligibility.Participant, req giveaway.Requirements) eligibility.Result
}

const (
	EventStarted  = "started"
	EventEnded    = "ended"
	EventRerolled = "rerolled"
	EventEdited   = "edited"
	EventDeleted  = "deleted"
)
