package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/giveaways/src/actions/giveaway/lifecycle"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

const (
	ButtonJoin  = "join"
	ButtonLeave = "leave"

	buttonPrefix = "giveaway:"

	colorActive = 0x5865F2
	colorEnded  = 0x99AAB5

	embedDescriptionLimit = 4096
	embedFieldLimit       = 1024
)

// ButtonID builds the custom id of a giveaway button.
func ButtonID(action, giveawayID string) string {
	return buttonPrefix + action + ":" + giveawayID
}

// ParseButtonID splits a custom id built by ButtonID.
func ParseButtonID(customID string) (action, giveawayID string, ok bool) {
	rest, found := strings.CutPrefix(customID, buttonPrefix)
	if !found {
		return "", "", false
	}
	action, giveawayID, found = strings.Cut(rest, ":")
	if !found || giveawayID == "" {
		return "", "", false
	}
	switch action {
	case ButtonJoin, ButtonLeave:
		return action, giveawayID, true
	}
	return "", "", false
}

// BuildAnnouncement renders the giveaway embed and its buttons. Buttons are
// disabled once the giveaway has ended.
func BuildAnnouncement(a lifecycle.Announcement) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := &discordgo.MessageEmbed{
		Title:       "🎉 Giveaway",
		Description: clip("**"+a.Prize+"**", embedDescriptionLimit),
		Color:       colorActive,
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + a.GiveawayID},
	}

	if a.HostID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Hosted by", Value: "<@" + a.HostID + ">", Inline: true})
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Winners", Value: fmt.Sprintf("%d", a.WinnerCount), Inline: true})

	switch {
	case a.Ended:
		embed.Title = "Giveaway ended"
		embed.Color = colorEnded
		value := "No participants"
		if len(a.Winners) > 0 {
			value = mentionList(a.Winners)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Winner(s)", Value: clip(value, embedFieldLimit)})
	case a.Mode == giveaway.ModeInstant:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Ends", Value: "When the first eligible member enters", Inline: true})
	default:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", a.EndAt.Unix()), Inline: true})
		embed.Timestamp = a.EndAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	if req := describeRequirements(a.Requirements); req != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Requirements", Value: req})
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Enter",
					Style:    discordgo.SuccessButton,
					CustomID: ButtonID(ButtonJoin, a.GiveawayID),
					Disabled: a.Ended,
				},
				discordgo.Button{
					Label:    "Leave",
					Style:    discordgo.SecondaryButton,
					CustomID: ButtonID(ButtonLeave, a.GiveawayID),
					Disabled: a.Ended,
				},
			},
		},
	}
	return embed, components
}

func describeRequirements(r giveaway.Requirements) string {
	var lines []string
	if r.MinimumRoleID != "" {
		lines = append(lines, "Role: <@&"+r.MinimumRoleID+">")
	}
	if r.MinimumLevel != nil && *r.MinimumLevel > 0 {
		lines = append(lines, fmt.Sprintf("Level: %d+", *r.MinimumLevel))
	}
	if r.MinimumInviteCount != nil && *r.MinimumInviteCount > 0 {
		lines = append(lines, fmt.Sprintf("Invites: %d+", *r.MinimumInviteCount))
	}
	return strings.Join(lines, "\n")
}

func mentionList(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "<@" + id + ">"
	}
	return strings.Join(out, ", ")
}

func clip(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
