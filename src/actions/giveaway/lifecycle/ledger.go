package lifecycle

import (
	"context"
	"fmt"
	"log"

	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Ledger records entries. Every mutation is a single conditional update in
// the store, so entries can never land after the giveaway ends.
type Ledger struct {
	store      Store
	evaluator  Eligibility
	controller *Controller
}

// NewLedger wires a ledger. evaluator may be nil when no requirements are used.
func NewLedger(store Store, evaluator Eligibility, controller *Controller) *Ledger {
	return &Ledger{store: store, evaluator: evaluator, controller: controller}
}

// Join enters p into the giveaway. A successful entry into an INSTANT
// giveaway ends it with p as the only winner.
func (l *Ledger) Join(ctx context.Context, id string, p eligibility.Participant) error {
	g, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if g.Ended {
		return giveaway.ErrAlreadyEnded
	}
	if g.Entries.Contains(p.UserID) {
		return giveaway.ErrAlreadyEntered
	}

	if l.evaluator != nil && !g.Requirements.IsZero() {
		if p.GuildID == "" {
			p.GuildID = g.GuildID
		}
		if res := l.evaluator.Evaluate(ctx, p, g.Requirements); !res.Allowed {
			return &giveaway.IneligibleError{Reason: res.Reason}
		}
	}

	instant := g.Mode == giveaway.ModeInstant
	if err := l.store.AddEntry(ctx, id, p.UserID, instant); err != nil {
		return err
	}
	if !instant {
		return nil
	}

	ended, err := l.controller.End(ctx, id, []string{p.UserID})
	if err != nil {
		return fmt.Errorf("end instant giveaway %s: %w", id, err)
	}
	if !ended {
		log.Printf("giveaway: instant %s was already closed when %s entered", id, p.UserID)
	}
	return nil
}

// Leave withdraws userID. Leaving a giveaway one never entered is not an error.
func (l *Ledger) Leave(ctx context.Context, id, userID string) error {
	return l.store.RemoveEntry(ctx, id, userID)
}
