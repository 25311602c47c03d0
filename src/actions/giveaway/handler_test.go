package giveaway

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
	"github.com/stake-plus/giveaways/src/actions/giveaway/lifecycle"
	"github.com/stake-plus/giveaways/src/data/giveaways"
	shareddiscord "github.com/stake-plus/giveaways/src/discord"
	sharedgiveaway "github.com/stake-plus/giveaways/src/shared/giveaway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentNotifier struct{}

func (silentNotifier) PostAnnouncement(context.Context, string, lifecycle.Announcement) (string, error) {
	return "msg", nil
}
func (silentNotifier) UpdateAnnouncement(context.Context, string, string, lifecycle.Announcement) error {
	return nil
}
func (silentNotifier) DeleteAnnouncement(context.Context, string, string) error { return nil }
func (silentNotifier) PostMessage(context.Context, string, string) error        { return nil }
func (silentNotifier) DirectMessage(context.Context, string, string) error      { return nil }

func newTestHandler() (*Handler, *giveaways.MemoryStore) {
	store := giveaways.NewMemoryStore()
	ctrl := lifecycle.NewController(store, silentNotifier{})
	return &Handler{
		Controller: ctrl,
		Ledger:     lifecycle.NewLedger(store, nil, ctrl),
	}, store
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func boolOpt(name string, v bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func command(sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) discordgo.ApplicationCommandInteractionData {
	return discordgo.ApplicationCommandInteractionData{
		Name: shareddiscord.CommandGiveaway,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    sub,
			Type:    discordgo.ApplicationCommandOptionSubCommand,
			Options: opts,
		}},
	}
}

func onlyGiveaway(t *testing.T, store *giveaways.MemoryStore) sharedgiveaway.Giveaway {
	t.Helper()
	list, err := store.List(context.Background(), giveaways.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("2d")
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, d)

	d, err = ParseDuration(" 90S ")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = ParseDuration("xd")
	assert.Error(t, err)
	_, err = ParseDuration("soon")
	assert.Error(t, err)
}

func TestStartCommand(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()

	reply := h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart,
		strOpt("prize", "  Nitro "),
		strOpt("duration", "1h"),
		intOpt("winners", 2),
		intOpt("min_level", 5),
	))
	assert.Contains(t, reply, "Giveaway started")

	g := onlyGiveaway(t, store)
	assert.Equal(t, "Nitro", g.Prize)
	assert.Equal(t, 2, g.WinnerCount)
	assert.Equal(t, time.Hour, g.Duration())
	require.NotNil(t, g.Requirements.MinimumLevel)
	assert.Equal(t, 5, *g.Requirements.MinimumLevel)
	assert.Equal(t, "host", g.HostID)
}

func TestStartCommandValidation(t *testing.T) {
	h, _ := newTestHandler()
	ctx := context.Background()

	reply := h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart, strOpt("prize", "Nitro")))
	assert.Contains(t, reply, "duration is required")

	reply = h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart, strOpt("prize", "Nitro"), strOpt("duration", "30s")))
	assert.Contains(t, reply, "Invalid duration")
}

func TestInstantCommandAndButtons(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()

	h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart, strOpt("prize", "Key"), boolOpt("instant", true)))
	g := onlyGiveaway(t, store)
	assert.Equal(t, sharedgiveaway.ModeInstant, g.Mode)

	join := shareddiscord.ButtonID(shareddiscord.ButtonJoin, g.ID)
	assert.Contains(t, h.runButton(ctx, join, eligibility.Participant{GuildID: "guild", UserID: "A"}), "You're in")
	assert.Equal(t, "This giveaway has already ended.", h.runButton(ctx, join, eligibility.Participant{GuildID: "guild", UserID: "B"}))

	ended, _ := store.Get(ctx, g.ID)
	assert.Equal(t, sharedgiveaway.IDList{"A"}, ended.Winners)
}

func TestButtonsJoinLeave(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()
	h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart, strOpt("prize", "Key"), strOpt("duration", "10m")))
	g := onlyGiveaway(t, store)

	p := eligibility.Participant{GuildID: "guild", UserID: "A"}
	join := shareddiscord.ButtonID(shareddiscord.ButtonJoin, g.ID)
	leave := shareddiscord.ButtonID(shareddiscord.ButtonLeave, g.ID)

	h.runButton(ctx, join, p)
	assert.Equal(t, "You have already entered this giveaway.", h.runButton(ctx, join, p))
	assert.Equal(t, "You have left the giveaway.", h.runButton(ctx, leave, p))
	assert.Equal(t, "Unknown button.", h.runButton(ctx, "nope", p))
	assert.Equal(t, "Giveaway not found.", h.runButton(ctx, shareddiscord.ButtonID(shareddiscord.ButtonJoin, "missing"), p))
}

func TestEndRerollEditDeleteCommands(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()
	h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart, strOpt("prize", "Key"), strOpt("duration", "10m")))
	g := onlyGiveaway(t, store)

	reply := h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandEdit, strOpt("id", g.ID), strOpt("prize", "Bigger key")))
	assert.Equal(t, "Giveaway updated.", reply)

	reply = h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandReroll, strOpt("id", g.ID)))
	assert.Contains(t, reply, "still running")

	h.runButton(ctx, shareddiscord.ButtonID(shareddiscord.ButtonJoin, g.ID), eligibility.Participant{UserID: "A"})
	assert.Equal(t, "Giveaway ended.", h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandEnd, strOpt("id", g.ID))))
	assert.Contains(t, h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandEnd, strOpt("id", g.ID))), "already ended")

	reply = h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandReroll, strOpt("id", g.ID)))
	assert.Equal(t, "Rerolled: <@A> is the new winner.", reply)

	assert.Equal(t, "Giveaway deleted.", h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandDelete, strOpt("id", g.ID))))
	_, err := store.Get(ctx, g.ID)
	assert.ErrorIs(t, err, sharedgiveaway.ErrNotFound)
}

type recordingResponder struct {
	calls []string
	edits []string
}

func (r *recordingResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.calls = append(r.calls, "respond")
	if resp.Type == discordgo.InteractionResponseDeferredChannelMessageWithSource && resp.Data != nil && resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0 {
		r.calls[len(r.calls)-1] = "defer"
	}
	return nil
}

func (r *recordingResponder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.calls = append(r.calls, "edit")
	r.edits = append(r.edits, *edit.Content)
	return &discordgo.Message{}, nil
}

func buttonInteraction(customID, userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "guild",
		Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func TestButtonDefersBeforeJoining(t *testing.T) {
	h, store := newTestHandler()
	ctx := context.Background()
	h.runCommand(ctx, "guild", "chan", "host", command(shareddiscord.SubcommandStart, strOpt("prize", "Key"), boolOpt("instant", true)))
	g := onlyGiveaway(t, store)

	r := &recordingResponder{}
	h.answerButton(r, buttonInteraction(shareddiscord.ButtonID(shareddiscord.ButtonJoin, g.ID), "A"))

	assert.Equal(t, []string{"defer", "edit"}, r.calls)
	require.Len(t, r.edits, 1)
	assert.Contains(t, r.edits[0], "You're in")

	ended, _ := store.Get(ctx, g.ID)
	assert.True(t, ended.Ended)
}

func TestButtonOutsideGuildAnswersImmediately(t *testing.T) {
	h, _ := newTestHandler()
	i := buttonInteraction("join:x", "A")
	i.Member = nil

	r := &recordingResponder{}
	h.answerButton(r, i)

	assert.Equal(t, []string{"respond"}, r.calls)
	assert.Empty(t, r.edits)
}
