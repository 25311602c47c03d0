// Package scheduler drives the giveaway clock inside the worker: it ends
// expired giveaways and executes intents queued by the dashboard.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Controller executes lifecycle transitions.
type Controller interface {
	StartQueued(ctx context.Context, g *giveaway.Giveaway) error
	End(ctx context.Context, id string, forced []string) (bool, error)
	Reroll(ctx context.Context, id string) (string, error)
	Edit(ctx context.Context, id string, p giveaway.Patch) (*giveaway.Giveaway, error)
	Delete(ctx context.Context, id string) error
}

// Queue is the read side of the store plus the relay acknowledgement.
type Queue interface {
	ListExpired(ctx context.Context, now time.Time, limit int) ([]giveaway.Giveaway, error)
	Pending(ctx context.Context, limit int) ([]giveaway.Giveaway, error)
	Ack(ctx context.Context, id string, action giveaway.Action) error
}

// Locker grants the right to run a tick. A nil Locker always grants it.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
}

// Config tunes the scheduler.
type Config struct {
	Interval time.Duration
	Limit    int
}

// Scheduler runs ticks sequentially on one goroutine.
type Scheduler struct {
	ctrl     Controller
	queue    Queue
	lock     Locker
	interval time.Duration
	limit    int
	now      func() time.Time
}

// New builds a scheduler. lock may be nil.
func New(ctrl Controller, queue Queue, lock Locker, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	return &Scheduler{
		ctrl:     ctrl,
		queue:    queue,
		lock:     lock,
		interval: cfg.Interval,
		limit:    cfg.Limit,
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil {
			log.Printf("giveaway: scheduler tick failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one expiry scan followed by one relay scan.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire lease: %w", err)
		}
		if !ok {
			return nil
		}
	}

	expiryErr := s.endExpired(ctx)
	relayErr := s.relay(ctx)
	return errors.Join(expiryErr, relayErr)
}

func (s *Scheduler) endExpired(ctx context.Context) error {
	expired, err := s.queue.ListExpired(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("list expired: %w", err)
	}
	for i := range expired {
		id := expired[i].ID
		// An INSTANT record here kept its first entrant but the end never
		// committed; that entrant is the winner.
		var forced []string
		if expired[i].Mode == giveaway.ModeInstant {
			forced = append([]string{}, expired[i].Entries...)
		}
		ended, err := s.ctrl.End(ctx, id, forced)
		switch {
		case err != nil:
			log.Printf("giveaway: end expired %s: %v", id, err)
		case ended:
			log.Printf("giveaway: ended expired %s", id)
		}
	}
	return nil
}

func (s *Scheduler) relay(ctx context.Context) error {
	pending, err := s.queue.Pending(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	for i := range pending {
		s.dispatch(ctx, &pending[i])
	}
	return nil
}

// dispatch runs one intent and always acknowledges it, even when the
// handler fails or panics. Delivery is at-least-once.
func (s *Scheduler) dispatch(ctx context.Context, g *giveaway.Giveaway) {
	if g.PendingAction == nil {
		return
	}
	action := *g.PendingAction

	defer func() {
		if r := recover(); r != nil {
			log.Printf("giveaway: relay %s %s panicked: %v", action, g.ID, r)
		}
		if err := s.queue.Ack(ctx, g.ID, action); err != nil {
			log.Printf("giveaway: ack %s %s: %v", action, g.ID, err)
		}
	}()

	if err := s.execute(ctx, action, g); err != nil {
		log.Printf("giveaway: relay %s %s: %v", action, g.ID, err)
		return
	}
	log.Printf("giveaway: relayed %s %s", action, g.ID)
}

func (s *Scheduler) execute(ctx context.Context, action giveaway.Action, g *giveaway.Giveaway) error {
	switch action {
	case giveaway.ActionStart:
		return s.ctrl.StartQueued(ctx, g)
	case giveaway.ActionEnd:
		_, err := s.ctrl.End(ctx, g.ID, nil)
		return err
	case giveaway.ActionReroll:
		_, err := s.ctrl.Reroll(ctx, g.ID)
		return err
	case giveaway.ActionEdit:
		if g.PendingPatch == nil {
			return fmt.Errorf("EDIT without a patch")
		}
		_, err := s.ctrl.Edit(ctx, g.ID, *g.PendingPatch)
		return err
	case giveaway.ActionDelete:
		return s.ctrl.Delete(ctx, g.ID)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}
