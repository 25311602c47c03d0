package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	appID, guildID string
	commands       []*discordgo.ApplicationCommand
	err            error
}

func (f *fakeRegistrar) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.appID, f.guildID, f.commands = appID, guildID, commands
	return commands, f.err
}

func TestRegisterSlashCommands(t *testing.T) {
	reg := &fakeRegistrar{}
	require.NoError(t, RegisterSlashCommands(reg, "app", "guild"))

	assert.Equal(t, "app", reg.appID)
	assert.Equal(t, "guild", reg.guildID)
	require.Len(t, reg.commands, 1)

	cmd := reg.commands[0]
	assert.Equal(t, CommandGiveaway, cmd.Name)
	var subs []string
	for _, opt := range cmd.Options {
		assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, opt.Type)
		subs = append(subs, opt.Name)
	}
	assert.ElementsMatch(t, []string{SubcommandStart, SubcommandEnd, SubcommandReroll, SubcommandEdit, SubcommandDelete}, subs)
}

func TestRegisterSlashCommandsErrors(t *testing.T) {
	assert.Error(t, RegisterSlashCommands(&fakeRegistrar{}, "", "guild"))
	assert.Error(t, RegisterSlashCommands(&fakeRegistrar{}, "app", "guild", "unknown"))

	reg := &fakeRegistrar{err: errors.New("401")}
	assert.ErrorContains(t, RegisterSlashCommands(reg, "app", "guild"), "401")
}
