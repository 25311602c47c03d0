package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// MemberHasRole checks the member attached to an interaction. Administrators
// always pass and an empty roleID always returns true.
func MemberHasRole(member *discordgo.Member, roleID string) bool {
	if roleID == "" {
		return true
	}
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return slices.Contains(member.Roles, roleID)
}
