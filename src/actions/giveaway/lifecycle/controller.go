package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Controller owns giveaway state transitions. It is the only component that
// talks to the notifier.
type Controller struct {
	store    Store
	notifier Notifier
	events   EventSink
	now      func() time.Time
	intn     func(n int) int
}

// Option configures a Controller.
type Option func(*Controller)

// WithEvents sends audit events to sink.
func WithEvents(sink EventSink) Option {
	return func(c *Controller) { c.events = sink }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRand overrides the random source used for draws.
func WithRand(intn func(n int) int) Option {
	return func(c *Controller) { c.intn = intn }
}

// NewController wires a controller.
func NewController(store Store, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		intn:     rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get loads a giveaway.
func (c *Controller) Get(ctx context.Context, id string) (*giveaway.Giveaway, error) {
	return c.store.Get(ctx, id)
}

// Start validates spec, persists a new giveaway and announces it.
func (c *Controller) Start(ctx context.Context, spec giveaway.Spec) (*giveaway.Giveaway, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Mode == "" {
		spec.Mode = giveaway.ModeStandard
	}

	now := c.now().UTC()
	g := &giveaway.Giveaway{
		ID:           uuid.NewString(),
		ChannelID:    spec.ChannelID,
		GuildID:      spec.GuildID,
		HostID:       spec.HostID,
		Prize:        spec.Prize,
		WinnerCount:  spec.WinnerCount,
		Mode:         spec.Mode,
		Requirements: spec.Requirements,
		StartAt:      now,
		EndAt:        now.Add(spec.Duration),
		Entries:      giveaway.IDList{},
		Winners:      giveaway.IDList{},
	}
	if g.Mode == giveaway.ModeInstant {
		g.EndAt = now
	}

	if err := c.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create giveaway: %w", err)
	}

	c.announce(ctx, g)
	c.emit(ctx, EventStarted, g.ID, map[string]interface{}{"prize": g.Prize, "mode": string(g.Mode)})
	return g, nil
}

// StartQueued announces a record the dashboard created. A record that already
// carries a message reference was announced by an earlier attempt and is left alone.
func (c *Controller) StartQueued(ctx context.Context, g *giveaway.Giveaway) error {
	if g.MessageID != "" {
		return nil
	}
	if g.Ended {
		return giveaway.ErrAlreadyEnded
	}

	spec := giveaway.Spec{
		GuildID:      g.GuildID,
		ChannelID:    g.ChannelID,
		HostID:       g.HostID,
		Prize:        g.Prize,
		WinnerCount:  g.WinnerCount,
		Duration:     g.Duration(),
		Mode:         g.Mode,
		Requirements: g.Requirements,
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	c.announce(ctx, g)
	c.emit(ctx, EventStarted, g.ID, map[string]interface{}{"prize": g.Prize, "mode": string(g.Mode), "queued": true})
	return nil
}

// End closes a giveaway and draws its winners. forced, when non-nil, is used
// verbatim instead of a draw. It reports false when the giveaway is missing
// or was already ended.
func (c *Controller) End(ctx context.Context, id string, forced []string) (bool, error) {
	g, err := c.store.Finish(ctx, id, func(g *giveaway.Giveaway) []string {
		if forced != nil {
			return forced
		}
		return Sample(g.Entries, g.WinnerCount, c.intn)
	})
	if errors.Is(err, giveaway.ErrNotFound) || errors.Is(err, giveaway.ErrAlreadyEnded) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("end giveaway %s: %w", id, err)
	}

	log.Printf("giveaway: %s ended with %d winner(s) from %d entries", g.ID, len(g.Winners), len(g.Entries))

	c.refresh(ctx, "end", g)
	if err := c.notifier.PostMessage(ctx, g.ChannelID, resultMessage(g)); err != nil {
		c.soft("end result", g.ID, err)
	}
	for _, w := range g.Winners {
		if err := c.notifier.DirectMessage(ctx, w, winnerDM(g)); err != nil {
			log.Printf("giveaway: DM winner %s of %s: %v", w, g.ID, err)
		}
	}

	c.emit(ctx, EventEnded, g.ID, map[string]interface{}{"winners": []string(g.Winners), "entries": len(g.Entries)})
	return true, nil
}

// Reroll draws one new winner from the entries of an ended giveaway. Past
// winners stay eligible and the stored winners list is not changed.
func (c *Controller) Reroll(ctx context.Context, id string) (string, error) {
	g, err := c.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !g.Ended {
		return "", fmt.Errorf("%w: giveaway %s has not ended", giveaway.ErrNotFound, id)
	}
	if len(g.Entries) == 0 {
		return "", giveaway.ErrNoParticipants
	}

	winner := g.Entries[c.intn(len(g.Entries))]

	if err := c.notifier.PostMessage(ctx, g.ChannelID, rerollMessage(g, winner)); err != nil {
		c.soft("reroll result", g.ID, err)
	}
	if err := c.notifier.DirectMessage(ctx, winner, winnerDM(g)); err != nil {
		log.Printf("giveaway: DM reroll winner %s of %s: %v", winner, g.ID, err)
	}

	c.emit(ctx, EventRerolled, g.ID, map[string]interface{}{"winner": winner})
	return winner, nil
}

// Edit applies a partial update to a running giveaway and re-renders it.
func (c *Controller) Edit(ctx context.Context, id string, p giveaway.Patch) (*giveaway.Giveaway, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := c.store.ApplyPatch(ctx, id, p, c.now().UTC())
	if err != nil {
		return nil, err
	}

	c.refresh(ctx, "edit", g)

	fields := map[string]interface{}{}
	if p.Prize != nil {
		fields["prize"] = g.Prize
	}
	if p.WinnerCount != nil {
		fields["winner_count"] = g.WinnerCount
	}
	if p.RemainingMs != nil {
		fields["end_at"] = g.EndAt.Format(time.RFC3339)
	}
	c.emit(ctx, EventEdited, g.ID, fields)
	return g, nil
}

// Delete removes the announcement, if it still exists, and the record.
// Deleting a missing giveaway is not an error.
func (c *Controller) Delete(ctx context.Context, id string) error {
	g, err := c.store.Get(ctx, id)
	if errors.Is(err, giveaway.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if g.MessageID != "" {
		if err := c.notifier.DeleteAnnouncement(ctx, g.ChannelID, g.MessageID); err != nil {
			c.soft("delete", g.ID, err)
		}
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete giveaway %s: %w", id, err)
	}

	c.emit(ctx, EventDeleted, id, nil)
	return nil
}

func (c *Controller) announce(ctx context.Context, g *giveaway.Giveaway) {
	msgID, err := c.notifier.PostAnnouncement(ctx, g.ChannelID, Render(g))
	if err != nil {
		c.soft("announce", g.ID, err)
		return
	}
	if err := c.store.SetMessage(ctx, g.ID, msgID); err != nil {
		log.Printf("giveaway: store message ref for %s: %v", g.ID, err)
		return
	}
	g.MessageID = msgID
}

func (c *Controller) refresh(ctx context.Context, op string, g *giveaway.Giveaway) {
	if g.MessageID == "" {
		return
	}
	if err := c.notifier.UpdateAnnouncement(ctx, g.ChannelID, g.MessageID, Render(g)); err != nil {
		c.soft(op, g.ID, err)
	}
}

// soft logs a rendering failure. Durable state has already been written.
func (c *Controller) soft(op, id string, err error) {
	if errors.Is(err, giveaway.ErrNotFound) {
		log.Printf("giveaway: %s %s: announcement no longer exists, skipping", op, id)
		return
	}
	log.Printf("giveaway: %s %s: %v", op, id, err)
}

func (c *Controller) emit(ctx context.Context, kind, id string, fields map[string]interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.Emit(ctx, kind, id, fields); err != nil {
		log.Printf("giveaway: emit %s for %s: %v", kind, id, err)
	}
}
