package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
	store "github.com/stake-plus/giveaways/src/data/giveaways"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store    *store.MemoryStore
	notifier *fakeNotifier
	events   *fakeSink
	ctrl     *Controller
	ledger   *Ledger
	now      time.Time
}

func newHarness(t *testing.T, levels levelTable) *harness {
	t.Helper()
	h := &harness{
		store:    store.NewMemoryStore(),
		notifier: newFakeNotifier(),
		events:   &fakeSink{},
		now:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	h.ctrl = NewController(h.store, h.notifier,
		WithEvents(h.events),
		WithClock(func() time.Time { return h.now }),
	)
	var evaluator Eligibility
	if levels != nil {
		evaluator = eligibility.NewEvaluator(levels, nil)
	}
	h.ledger = NewLedger(h.store, evaluator, h.ctrl)
	return h
}

func (h *harness) start(t *testing.T, spec giveaway.Spec) *giveaway.Giveaway {
	t.Helper()
	if spec.ChannelID == "" {
		spec.ChannelID = "chan"
	}
	if spec.Prize == "" {
		spec.Prize = "Nitro"
	}
	if spec.WinnerCount == 0 {
		spec.WinnerCount = 1
	}
	if spec.Duration == 0 && spec.Mode != giveaway.ModeInstant {
		spec.Duration = time.Minute
	}
	g, err := h.ctrl.Start(context.Background(), spec)
	require.NoError(t, err)
	return g
}

func join(t *testing.T, h *harness, id, user string) error {
	t.Helper()
	return h.ledger.Join(context.Background(), id, eligibility.Participant{GuildID: "guild", UserID: user})
}

func TestStartValidates(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.ctrl.Start(context.Background(), giveaway.Spec{ChannelID: "c", Prize: "p", WinnerCount: 0, Duration: time.Minute})
	assert.ErrorIs(t, err, giveaway.ErrValidation)

	_, err = h.ctrl.Start(context.Background(), giveaway.Spec{ChannelID: "c", Prize: "p", WinnerCount: 1, Duration: 30 * time.Second})
	assert.ErrorIs(t, err, giveaway.ErrValidation)
}

func TestStartPersistsAndAnnounces(t *testing.T) {
	h := newHarness(t, nil)
	g := h.start(t, giveaway.Spec{GuildID: "guild", HostID: "host"})

	stored, err := h.store.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.MessageID)
	assert.Equal(t, h.now.Add(time.Minute), stored.EndAt)
	assert.Equal(t, giveaway.ModeStandard, stored.Mode)
	assert.Equal(t, giveaway.StateActive, stored.State())
	assert.Equal(t, "Nitro", h.notifier.posted["m1"].Prize)
	assert.Equal(t, []string{EventStarted}, h.events.kinds())
}

func TestStartSurvivesAnnouncementFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.postErr = giveaway.ErrNotFound
	g := h.start(t, giveaway.Spec{})

	stored, err := h.store.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.MessageID)
}

func TestStartQueuedIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := &giveaway.Giveaway{
		ID: "q1", ChannelID: "chan", Prize: "Key", WinnerCount: 1, Mode: giveaway.ModeStandard,
		StartAt: h.now, EndAt: h.now.Add(time.Hour),
	}
	require.NoError(t, h.store.EnqueueStart(ctx, g, h.now))

	require.NoError(t, h.ctrl.StartQueued(ctx, g))
	assert.Len(t, h.notifier.posted, 1)

	again, err := h.store.Get(ctx, "q1")
	require.NoError(t, err)
	require.NoError(t, h.ctrl.StartQueued(ctx, again))
	assert.Len(t, h.notifier.posted, 1, "a second START must not post a duplicate")
}

func TestEndStandardDrawsFromEntries(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{WinnerCount: 2})
	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, join(t, h, g.ID, u))
	}

	ok, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ended, err := h.store.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, ended.Ended)
	assert.Len(t, ended.Winners, 2)
	for _, w := range ended.Winners {
		assert.Contains(t, []string{"a", "b", "c"}, w)
		assert.Len(t, h.notifier.dms[w], 1)
	}
	require.Len(t, h.notifier.updates, 1)
	assert.True(t, h.notifier.updates[0].Ended)
	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0], "Congratulations")
}

func TestEndWinnersCappedByEntries(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{WinnerCount: 5})
	require.NoError(t, join(t, h, g.ID, "a"))

	_, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	ended, _ := h.store.Get(ctx, g.ID)
	assert.Equal(t, giveaway.IDList{"a"}, ended.Winners)
}

func TestEndWithNoParticipants(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})

	ok, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ended, _ := h.store.Get(ctx, g.ID)
	assert.Empty(t, ended.Winners)
	assert.Contains(t, h.notifier.messages[0], "no participants")
}

func TestEndTwiceIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	require.NoError(t, join(t, h, g.ID, "a"))

	ok, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	first, _ := h.store.Get(ctx, g.ID)

	ok, err = h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	second, _ := h.store.Get(ctx, g.ID)
	assert.Equal(t, first.Winners, second.Winners)
	assert.Len(t, h.notifier.messages, 1)
}

func TestEndMissingIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	ok, err := h.ctrl.End(context.Background(), "nope", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEndToleratesDeletedAnnouncement(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	require.NoError(t, join(t, h, g.ID, "a"))
	h.notifier.updateErr = giveaway.ErrNotFound

	ok, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ended, _ := h.store.Get(ctx, g.ID)
	assert.True(t, ended.Ended)
	assert.Equal(t, giveaway.IDList{"a"}, ended.Winners)
}

func TestJoinAfterEndRejected(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	require.NoError(t, join(t, h, g.ID, "a"))
	_, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, join(t, h, g.ID, "b"), giveaway.ErrAlreadyEnded)
	ended, _ := h.store.Get(ctx, g.ID)
	assert.Equal(t, giveaway.IDList{"a"}, ended.Entries)

	assert.ErrorIs(t, h.ledger.Leave(ctx, g.ID, "a"), giveaway.ErrAlreadyEnded)
}

func TestJoinTwiceRejected(t *testing.T) {
	h := newHarness(t, nil)
	g := h.start(t, giveaway.Spec{})
	require.NoError(t, join(t, h, g.ID, "a"))
	assert.ErrorIs(t, join(t, h, g.ID, "a"), giveaway.ErrAlreadyEntered)
}

func TestLeave(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	require.NoError(t, join(t, h, g.ID, "a"))
	require.NoError(t, h.ledger.Leave(ctx, g.ID, "a"))
	require.NoError(t, h.ledger.Leave(ctx, g.ID, "a"))

	stored, _ := h.store.Get(ctx, g.ID)
	assert.Empty(t, stored.Entries)
}

func TestRerollRequiresEnded(t *testing.T) {
	h := newHarness(t, nil)
	g := h.start(t, giveaway.Spec{})
	_, err := h.ctrl.Reroll(context.Background(), g.ID)
	assert.ErrorIs(t, err, giveaway.ErrNotFound)

	_, err = h.ctrl.Reroll(context.Background(), "missing")
	assert.ErrorIs(t, err, giveaway.ErrNotFound)
}

func TestRerollNoParticipantsDoesNotMutate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	_, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)
	before, _ := h.store.Get(ctx, g.ID)

	_, err = h.ctrl.Reroll(ctx, g.ID)
	assert.ErrorIs(t, err, giveaway.ErrNoParticipants)

	after, _ := h.store.Get(ctx, g.ID)
	assert.Equal(t, before.Winners, after.Winners)
	assert.Equal(t, before.Ended, after.Ended)
}

func TestEditPrizeLeavesOtherFields(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{WinnerCount: 3, HostID: "host"})
	require.NoError(t, join(t, h, g.ID, "a"))
	before, _ := h.store.Get(ctx, g.ID)

	prize := "X"
	_, err := h.ctrl.Edit(ctx, g.ID, giveaway.Patch{Prize: &prize})
	require.NoError(t, err)

	after, err := h.store.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", after.Prize)

	after.Prize = before.Prize
	assert.Equal(t, before, after)
	require.Len(t, h.notifier.updates, 1)
	assert.Equal(t, "X", h.notifier.updates[0].Prize)
}

func TestEditRemainingIsRelativeToNow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{Duration: time.Hour})

	h.now = h.now.Add(10 * time.Minute)
	ms := int64(5 * 60 * 1000)
	edited, err := h.ctrl.Edit(ctx, g.ID, giveaway.Patch{RemainingMs: &ms})
	require.NoError(t, err)
	assert.Equal(t, h.now.Add(5*time.Minute), edited.EndAt)
}

func TestEditEndedRejected(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	_, err := h.ctrl.End(ctx, g.ID, nil)
	require.NoError(t, err)

	prize := "X"
	_, err = h.ctrl.Edit(ctx, g.ID, giveaway.Patch{Prize: &prize})
	assert.ErrorIs(t, err, giveaway.ErrAlreadyEnded)
}

func TestDeleteIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})

	require.NoError(t, h.ctrl.Delete(ctx, g.ID))
	assert.Equal(t, []string{"m1"}, h.notifier.deleted)
	_, err := h.store.Get(ctx, g.ID)
	assert.ErrorIs(t, err, giveaway.ErrNotFound)

	require.NoError(t, h.ctrl.Delete(ctx, g.ID))
	assert.Len(t, h.notifier.deleted, 1)
}

func TestDeleteToleratesMissingAnnouncement(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	g := h.start(t, giveaway.Spec{})
	h.notifier.deleteErr = giveaway.ErrNotFound

	require.NoError(t, h.ctrl.Delete(ctx, g.ID))
	_, err := h.store.Get(ctx, g.ID)
	assert.ErrorIs(t, err, giveaway.ErrNotFound)
}
