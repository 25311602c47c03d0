package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/giveaways/src/actions/giveaway/lifecycle"
	"github.com/stake-plus/giveaways/src/logging"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

// Session is the part of *discordgo.Session the notifier uses.
type Session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

var _ Session = (*discordgo.Session)(nil)
var _ lifecycle.Notifier = (*Notifier)(nil)

// Notifier renders giveaway announcements in Discord.
type Notifier struct {
	session  Session
	attempts int
	delay    time.Duration
}

// NewNotifier wraps a session. Rate limited and 5xx calls are retried.
func NewNotifier(s Session) *Notifier {
	return &Notifier{session: s, attempts: 3, delay: 2 * time.Second}
}

func (n *Notifier) PostAnnouncement(ctx context.Context, channelID string, a lifecycle.Announcement) (string, error) {
	embed, components := BuildAnnouncement(a)
	var msg *discordgo.Message
	err := withRetry(ctx, n.attempts, n.delay, func() error {
		var err error
		msg, err = n.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		}, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return "", classify("post announcement", err)
	}
	return msg.ID, nil
}

func (n *Notifier) UpdateAnnouncement(ctx context.Context, channelID, messageID string, a lifecycle.Announcement) error {
	embed, components := BuildAnnouncement(a)
	embeds := []*discordgo.MessageEmbed{embed}
	err := withRetry(ctx, n.attempts, n.delay, func() error {
		_, err := n.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         messageID,
			Channel:    channelID,
			Embeds:     &embeds,
			Components: &components,
		}, discordgo.WithContext(ctx))
		return err
	})
	return classify("update announcement", err)
}

func (n *Notifier) DeleteAnnouncement(ctx context.Context, channelID, messageID string) error {
	err := withRetry(ctx, n.attempts, n.delay, func() error {
		return n.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	})
	return classify("delete announcement", err)
}

func (n *Notifier) PostMessage(ctx context.Context, channelID, content string) error {
	err := withRetry(ctx, n.attempts, n.delay, func() error {
		_, err := n.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
		return err
	})
	return classify("post message", err)
}

// DirectMessage is best effort; members with closed DMs come back as ErrUnreachable.
func (n *Notifier) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return classify("open DM", err)
	}
	_, err = n.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return classify("send DM", err)
}

// classify maps Discord errors onto the giveaway taxonomy.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case logging.IsNotFound(err):
		return fmt.Errorf("%s: %w: %v", op, giveaway.ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, giveaway.ErrUnreachable, err)
	}
}
