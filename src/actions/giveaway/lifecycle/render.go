package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Announcement is the content of the public giveaway message. The notifier
// decides how it looks.
type Announcement struct {
	GiveawayID   string
	Prize        string
	HostID       string
	WinnerCount  int
	Mode         giveaway.Mode
	EndAt        time.Time
	Requirements giveaway.Requirements
	Ended        bool
	Winners      []string
}

// Render builds the announcement for the current record state.
func Render(g *giveaway.Giveaway) Announcement {
	return Announcement{
		GiveawayID:   g.ID,
		Prize:        g.Prize,
		HostID:       g.HostID,
		WinnerCount:  g.WinnerCount,
		Mode:         g.Mode,
		EndAt:        g.EndAt,
		Requirements: g.Requirements,
		Ended:        g.Ended,
		Winners:      append([]string(nil), g.Winners...),
	}
}

func mentions(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, ", ")
}

func resultMessage(g *giveaway.Giveaway) string {
	if len(g.Winners) == 0 {
		return fmt.Sprintf("The giveaway for **%s** has ended with no participants.", g.Prize)
	}
	return fmt.Sprintf("Congratulations %s! You won **%s**.", mentions(g.Winners), g.Prize)
}

func rerollMessage(g *giveaway.Giveaway, winner string) string {
	return fmt.Sprintf("The new winner of **%s** is <@%s>. Congratulations!", g.Prize, winner)
}

func winnerDM(g *giveaway.Giveaway) string {
	if g.HostID == "" {
		return fmt.Sprintf("You won **%s** in a giveaway. Reach out to the server staff to claim it.", g.Prize)
	}
	return fmt.Sprintf("You won **%s** in a giveaway hosted by <@%s>. Reach out to the host to claim it.", g.Prize, g.HostID)
}
