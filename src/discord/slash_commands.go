package discord

import (
	"errors"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandGiveaway = "giveaway"

	SubcommandStart  = "start"
	SubcommandEnd    = "end"
	SubcommandReroll = "reroll"
	SubcommandEdit   = "edit"
	SubcommandDelete = "delete"
)

var minWinners = 1.0
var minZero = 0.0

func giveawayIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "Giveaway ID (shown in the announcement footer)",
		Required:    true,
	}
}

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandGiveaway: {
		Name:        CommandGiveaway,
		Description: "Run giveaways in this server",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubcommandStart,
				Description: "Start a new giveaway",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "prize",
						Description: "What is being given away",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "duration",
						Description: "How long it runs, e.g. 30m, 2h, 1d (ignored for instant giveaways)",
						Required:    false,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "winners",
						Description: "Number of winners (default 1)",
						MinValue:    &minWinners,
					},
					{
						Type:        discordgo.ApplicationCommandOptionChannel,
						Name:        "channel",
						Description: "Channel to announce in (default: this channel)",
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildText,
							discordgo.ChannelTypeGuildNews,
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "instant",
						Description: "First eligible member to enter wins",
					},
					{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "required_role",
						Description: "Role members need to enter",
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "min_level",
						Description: "Minimum level to enter",
						MinValue:    &minZero,
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "min_invites",
						Description: "Minimum net invites to enter",
						MinValue:    &minZero,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubcommandEnd,
				Description: "End a giveaway now and draw winners",
				Options:     []*discordgo.ApplicationCommandOption{giveawayIDOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubcommandReroll,
				Description: "Draw a new winner for an ended giveaway",
				Options:     []*discordgo.ApplicationCommandOption{giveawayIDOption()},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubcommandEdit,
				Description: "Change a running giveaway",
				Options: []*discordgo.ApplicationCommandOption{
					giveawayIDOption(),
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "prize",
						Description: "New prize description",
					},
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "winners",
						Description: "New number of winners",
						MinValue:    &minWinners,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "remaining",
						Description: "New time remaining from now, e.g. 45m",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        SubcommandDelete,
				Description: "Delete a giveaway and its announcement",
				Options:     []*discordgo.ApplicationCommandOption{giveawayIDOption()},
			},
		},
	},
}

// CommandRegistrar is the part of the Discord session used to publish
// application commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

var _ CommandRegistrar = (*discordgo.Session)(nil)

// Commands returns the definitions for the named commands, or all of them.
func Commands(names ...string) ([]*discordgo.ApplicationCommand, error) {
	if len(names) == 0 {
		names = []string{CommandGiveaway}
	}
	out := make([]*discordgo.ApplicationCommand, 0, len(names))
	for _, name := range names {
		def, ok := commandDefinitions[name]
		if !ok {
			return nil, fmt.Errorf("discord: unknown slash command %q", name)
		}
		out = append(out, def)
	}
	return out, nil
}

// RegisterSlashCommands replaces the application's commands in guildID with
// the named definitions. An empty guildID registers them globally, which
// Discord can take up to an hour to propagate.
func RegisterSlashCommands(s CommandRegistrar, appID, guildID string, names ...string) error {
	if appID == "" {
		return errors.New("discord: application id is required to register slash commands")
	}
	defs, err := Commands(names...)
	if err != nil {
		return err
	}
	if guildID == "" {
		log.Printf("discord: registering %d command(s) globally", len(defs))
	}
	if _, err := s.ApplicationCommandBulkOverwrite(appID, guildID, defs); err != nil {
		return fmt.Errorf("discord: register slash commands: %w", err)
	}
	return nil
}
