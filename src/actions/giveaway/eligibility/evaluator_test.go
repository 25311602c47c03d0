package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
	"github.com/stretchr/testify/assert"
)

type fakeLevels struct {
	levels map[string]int
	err    error
	calls  int
}

func (f *fakeLevels) Level(_ context.Context, _, userID string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.levels[userID], nil
}

type fakeInvites struct {
	invites map[string]int
	err     error
	calls   int
}

func (f *fakeInvites) NetInvites(_ context.Context, _, userID string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.invites[userID], nil
}

func intPtr(v int) *int { return &v }

func TestEvaluateNoRequirements(t *testing.T) {
	e := NewEvaluator(nil, nil)
	res := e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "u"}, giveaway.Requirements{})
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Reason)
}

func TestEvaluateMissingRole(t *testing.T) {
	levels := &fakeLevels{}
	e := NewEvaluator(levels, nil)
	req := giveaway.Requirements{MinimumRoleID: "vip", MinimumLevel: intPtr(3)}

	res := e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "u", RoleIDs: []string{"other"}}, req)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "<@&vip>")
	assert.Zero(t, levels.calls, "role failure should short-circuit the level lookup")
}

func TestEvaluateLevel(t *testing.T) {
	levels := &fakeLevels{levels: map[string]int{"low": 2, "high": 5}}
	e := NewEvaluator(levels, nil)
	req := giveaway.Requirements{MinimumLevel: intPtr(5)}

	res := e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "low"}, req)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "level 5")
	assert.Contains(t, res.Reason, "level 2")

	res = e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "high"}, req)
	assert.True(t, res.Allowed)

	// No profile counts as level 0.
	res = e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "nobody"}, req)
	assert.False(t, res.Allowed)
}

func TestEvaluateInvites(t *testing.T) {
	invites := &fakeInvites{invites: map[string]int{"u": 3}}
	e := NewEvaluator(nil, invites)

	res := e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "u"}, giveaway.Requirements{MinimumInviteCount: intPtr(4)})
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "at least 4 invites")

	res = e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "u"}, giveaway.Requirements{MinimumInviteCount: intPtr(3)})
	assert.True(t, res.Allowed)
}

func TestEvaluateZeroThresholdSkipsLookup(t *testing.T) {
	levels := &fakeLevels{err: errors.New("should not be called")}
	e := NewEvaluator(levels, nil)
	res := e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "u"}, giveaway.Requirements{MinimumLevel: intPtr(0)})
	assert.True(t, res.Allowed)
	assert.Zero(t, levels.calls)
}

func TestEvaluateSourceFailureRejects(t *testing.T) {
	levels := &fakeLevels{err: giveaway.ErrUnreachable}
	invites := &fakeInvites{}
	e := NewEvaluator(levels, invites)
	req := giveaway.Requirements{MinimumLevel: intPtr(1), MinimumInviteCount: intPtr(1)}

	res := e.Evaluate(context.Background(), Participant{GuildID: "g", UserID: "u"}, req)
	assert.False(t, res.Allowed)
	assert.Contains(t, res.Reason, "couldn't verify your level")
	assert.Zero(t, invites.calls)
}

func TestEvaluateRefusalDropsCachedValue(t *testing.T) {
	ctx := context.Background()
	levels := &fakeLevels{levels: map[string]int{"u": 3}}
	invites := &fakeInvites{invites: map[string]int{"u": 1}}
	e := NewEvaluator(
		CachedLevels{Source: levels, Cache: NewMemoryCache(time.Hour)},
		CachedInvites{Source: invites, Cache: NewMemoryCache(time.Hour)},
	)
	p := Participant{GuildID: "g", UserID: "u"}

	res := e.Evaluate(ctx, p, giveaway.Requirements{MinimumLevel: intPtr(5)})
	assert.False(t, res.Allowed)
	levels.levels["u"] = 6
	res = e.Evaluate(ctx, p, giveaway.Requirements{MinimumLevel: intPtr(5)})
	assert.True(t, res.Allowed, "level-up must be seen on the next attempt")
	assert.Equal(t, 2, levels.calls)

	res = e.Evaluate(ctx, p, giveaway.Requirements{MinimumLevel: intPtr(5)})
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, levels.calls, "a pass keeps the cached level")

	res = e.Evaluate(ctx, p, giveaway.Requirements{MinimumInviteCount: intPtr(2)})
	assert.False(t, res.Allowed)
	invites.invites["u"] = 2
	res = e.Evaluate(ctx, p, giveaway.Requirements{MinimumInviteCount: intPtr(2)})
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, invites.calls)
}
