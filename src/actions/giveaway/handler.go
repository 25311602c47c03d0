package giveaway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
	"github.com/stake-plus/giveaways/src/actions/giveaway/lifecycle"
	shareddiscord "github.com/stake-plus/giveaways/src/discord"
	sharedgiveaway "github.com/stake-plus/giveaways/src/shared/giveaway"
)

const interactionTimeout = 10 * time.Second

// Handler turns /giveaway commands and button presses into lifecycle calls.
type Handler struct {
	Controller    *lifecycle.Controller
	Ledger        *lifecycle.Ledger
	ManagerRoleID string
}

// HandleSlash executes a /giveaway subcommand and replies ephemerally.
func (h *Handler) HandleSlash(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		respond(s, i, "Giveaways can only be managed inside a server.")
		return
	}
	if !shareddiscord.MemberHasRole(i.Member, h.ManagerRoleID) {
		respond(s, i, "You don't have permission to manage giveaways.")
		return
	}

	if !deferEphemeral(s, i) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	editResponse(s, i, h.runCommand(ctx, i.GuildID, i.ChannelID, i.Member.User.ID, i.ApplicationCommandData()))
}

// HandleButton handles the Enter and Leave buttons on an announcement.
func (h *Handler) HandleButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.answerButton(s, i)
}

func (h *Handler) answerButton(s InteractionResponder, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		respond(s, i, "Giveaways can only be entered inside a server.")
		return
	}

	// Eligibility lookups and an INSTANT end can outlast Discord's 3s window.
	if !deferEphemeral(s, i) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	p := eligibility.Participant{GuildID: i.GuildID, UserID: i.Member.User.ID, RoleIDs: i.Member.Roles}
	editResponse(s, i, h.runButton(ctx, i.MessageComponentData().CustomID, p))
}

func (h *Handler) runButton(ctx context.Context, customID string, p eligibility.Participant) string {
	action, id, ok := shareddiscord.ParseButtonID(customID)
	if !ok {
		return "Unknown button."
	}

	switch action {
	case shareddiscord.ButtonJoin:
		if err := h.Ledger.Join(ctx, id, p); err != nil {
			return userMessage("join", id, err)
		}
		return "You're in! Good luck 🎉"
	default:
		if err := h.Ledger.Leave(ctx, id, p.UserID); err != nil {
			return userMessage("leave", id, err)
		}
		return "You have left the giveaway."
	}
}

func (h *Handler) runCommand(ctx context.Context, guildID, channelID, userID string, data discordgo.ApplicationCommandInteractionData) string {
	if len(data.Options) == 0 {
		return "Choose a subcommand."
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case shareddiscord.SubcommandStart:
		spec, err := specFromOptions(guildID, channelID, userID, opts)
		if err != nil {
			return err.Error()
		}
		g, err := h.Controller.Start(ctx, spec)
		if err != nil {
			return userMessage("start", "", err)
		}
		return fmt.Sprintf("Giveaway started in <#%s> (ID `%s`).", g.ChannelID, g.ID)

	case shareddiscord.SubcommandEnd:
		id := stringOption(opts, "id")
		ended, err := h.Controller.End(ctx, id, nil)
		if err != nil {
			return userMessage("end", id, err)
		}
		if !ended {
			return "That giveaway doesn't exist or has already ended."
		}
		return "Giveaway ended."

	case shareddiscord.SubcommandReroll:
		id := stringOption(opts, "id")
		winner, err := h.Controller.Reroll(ctx, id)
		if err != nil {
			return userMessage("reroll", id, err)
		}
		return fmt.Sprintf("Rerolled: <@%s> is the new winner.", winner)

	case shareddiscord.SubcommandEdit:
		id := stringOption(opts, "id")
		patch, err := patchFromOptions(opts)
		if err != nil {
			return err.Error()
		}
		if _, err := h.Controller.Edit(ctx, id, patch); err != nil {
			return userMessage("edit", id, err)
		}
		return "Giveaway updated."

	case shareddiscord.SubcommandDelete:
		id := stringOption(opts, "id")
		if err := h.Controller.Delete(ctx, id); err != nil {
			return userMessage("delete", id, err)
		}
		return "Giveaway deleted."
	}

	return fmt.Sprintf("Unknown subcommand %q.", sub.Name)
}

func specFromOptions(guildID, channelID, hostID string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (sharedgiveaway.Spec, error) {
	spec := sharedgiveaway.Spec{
		GuildID:     guildID,
		ChannelID:   channelID,
		HostID:      hostID,
		Prize:       strings.TrimSpace(stringOption(opts, "prize")),
		WinnerCount: 1,
		Mode:        sharedgiveaway.ModeStandard,
	}

	if opt, ok := opts["winners"]; ok {
		spec.WinnerCount = int(opt.IntValue())
	}
	if opt, ok := opts["channel"]; ok {
		spec.ChannelID = opt.ChannelValue(nil).ID
	}
	if opt, ok := opts["instant"]; ok && opt.BoolValue() {
		spec.Mode = sharedgiveaway.ModeInstant
	}
	if opt, ok := opts["required_role"]; ok {
		spec.Requirements.MinimumRoleID = opt.RoleValue(nil, "").ID
	}
	if opt, ok := opts["min_level"]; ok {
		v := int(opt.IntValue())
		spec.Requirements.MinimumLevel = &v
	}
	if opt, ok := opts["min_invites"]; ok {
		v := int(opt.IntValue())
		spec.Requirements.MinimumInviteCount = &v
	}

	if spec.Mode == sharedgiveaway.ModeStandard {
		raw := stringOption(opts, "duration")
		if raw == "" {
			return spec, errors.New("A duration is required, e.g. `30m` or `2h`.")
		}
		d, err := ParseDuration(raw)
		if err != nil {
			return spec, fmt.Errorf("Could not read duration %q. Use values like `90s`, `30m`, `2h` or `1d`.", raw)
		}
		spec.Duration = d
	}
	return spec, nil
}

func patchFromOptions(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (sharedgiveaway.Patch, error) {
	var p sharedgiveaway.Patch
	if opt, ok := opts["prize"]; ok {
		prize := strings.TrimSpace(opt.StringValue())
		p.Prize = &prize
	}
	if opt, ok := opts["winners"]; ok {
		n := int(opt.IntValue())
		p.WinnerCount = &n
	}
	if opt, ok := opts["remaining"]; ok {
		d, err := ParseDuration(opt.StringValue())
		if err != nil {
			return p, fmt.Errorf("Could not read remaining time %q.", opt.StringValue())
		}
		ms := d.Milliseconds()
		p.RemainingMs = &ms
	}
	return p, nil
}

// ParseDuration accepts Go durations plus a trailing d for days.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(raw)
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

// userMessage turns a lifecycle error into a reply. Unexpected errors are
// logged and replaced with a generic message.
func userMessage(op, id string, err error) string {
	var inel *sharedgiveaway.IneligibleError
	var verr *sharedgiveaway.ValidationError
	switch {
	case errors.As(err, &inel):
		return inel.Reason
	case errors.As(err, &verr):
		return "Invalid " + verr.Field + ": " + verr.Msg + "."
	case errors.Is(err, sharedgiveaway.ErrAlreadyEntered):
		return "You have already entered this giveaway."
	case errors.Is(err, sharedgiveaway.ErrAlreadyEnded):
		return "This giveaway has already ended."
	case errors.Is(err, sharedgiveaway.ErrNoParticipants):
		return "Nobody entered that giveaway, so there is no one to reroll."
	case errors.Is(err, sharedgiveaway.ErrNotFound):
		if op == "reroll" {
			return "Only ended giveaways can be rerolled, and that one was not found or is still running."
		}
		return "Giveaway not found."
	}
	log.Printf("giveaway: %s %s failed: %v", op, id, err)
	return "Something went wrong. Please try again later."
}

// InteractionResponder is the part of the Discord session used to answer
// interactions.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ InteractionResponder = (*discordgo.Session)(nil)

// deferEphemeral acknowledges the interaction with a private "thinking"
// state. The real reply follows through editResponse.
func deferEphemeral(s InteractionResponder, i *discordgo.InteractionCreate) bool {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		log.Printf("giveaway: failed to acknowledge interaction: %v", err)
		return false
	}
	return true
}

func editResponse(s InteractionResponder, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		log.Printf("giveaway: failed to edit interaction response: %v", err)
	}
}

func respond(s InteractionResponder, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		log.Printf("giveaway: failed to respond to interaction: %v", err)
	}
}
