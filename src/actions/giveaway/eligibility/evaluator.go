// Package eligibility decides whether a member may enter a giveaway.
package eligibility

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Participant is the member trying to enter.
type Participant struct {
	GuildID string
	UserID  string
	RoleIDs []string
}

// Result is the outcome of an evaluation. Reason is set when Allowed is false.
type Result struct {
	Allowed bool
	Reason  string
}

// LevelSource returns a member's level, 0 when the member has no profile.
type LevelSource interface {
	Level(ctx context.Context, guildID, userID string) (int, error)
}

// InviteSource returns a member's net invites (regular + bonus - leaves), 0
// when the member has no record.
type InviteSource interface {
	NetInvites(ctx context.Context, guildID, userID string) (int, error)
}

// Evaluator checks a participant against a requirement set. It never writes.
type Evaluator struct {
	Levels  LevelSource
	Invites InviteSource
}

// NewEvaluator builds an evaluator. Either source may be nil, in which case
// the matching requirement is treated as satisfied by level/invites 0.
func NewEvaluator(levels LevelSource, invites InviteSource) *Evaluator {
	return &Evaluator{Levels: levels, Invites: invites}
}

// Evaluate checks each configured requirement in turn and stops at the first
// one the participant fails.
func (e *Evaluator) Evaluate(ctx context.Context, p Participant, req giveaway.Requirements) Result {
	if req.MinimumRoleID != "" && !slices.Contains(p.RoleIDs, req.MinimumRoleID) {
		return deny(fmt.Sprintf("You need the <@&%s> role to enter this giveaway.", req.MinimumRoleID))
	}

	if req.MinimumLevel != nil && *req.MinimumLevel > 0 {
		level := 0
		if e.Levels != nil {
			lvl, err := e.Levels.Level(ctx, p.GuildID, p.UserID)
			if err != nil {
				log.Printf("eligibility: level lookup for %s in %s failed: %v", p.UserID, p.GuildID, err)
				return deny("We couldn't verify your level right now. Please try again shortly.")
			}
			level = lvl
		}
		if level < *req.MinimumLevel {
			forget(ctx, e.Levels, p)
			return deny(fmt.Sprintf("You need to be at least level %d to enter (you are level %d).", *req.MinimumLevel, level))
		}
	}

	if req.MinimumInviteCount != nil && *req.MinimumInviteCount > 0 {
		invites := 0
		if e.Invites != nil {
			n, err := e.Invites.NetInvites(ctx, p.GuildID, p.UserID)
			if err != nil {
				log.Printf("eligibility: invite lookup for %s in %s failed: %v", p.UserID, p.GuildID, err)
				return deny("We couldn't verify your invites right now. Please try again shortly.")
			}
			invites = n
		}
		if invites < *req.MinimumInviteCount {
			forget(ctx, e.Invites, p)
			return deny(fmt.Sprintf("You need at least %d invites to enter (you have %d).", *req.MinimumInviteCount, invites))
		}
	}

	return Result{Allowed: true}
}

// invalidator is implemented by cached sources.
type invalidator interface {
	Invalidate(ctx context.Context, guildID, userID string) error
}

// forget drops a cached value that just caused a refusal, so a member who
// levels up or gains invites is re-read on their next attempt.
func forget(ctx context.Context, source any, p Participant) {
	inv, ok := source.(invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, p.GuildID, p.UserID); err != nil {
		log.Printf("eligibility: invalidate %s in %s: %v", p.UserID, p.GuildID, err)
	}
}

func deny(reason string) Result {
	return Result{Allowed: false, Reason: reason}
}
