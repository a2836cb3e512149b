package emitter

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordSender posts embeds through the Discord webhook API.
type DiscordSender struct {
	session   *discordgo.Session
	username  string
	avatarURL string
}

// NewDiscordSender creates a sender. Webhook calls carry their own token,
// so the session needs no bot credentials.
func NewDiscordSender(username, avatarURL string) (*DiscordSender, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if username == "" {
		username = DefaultUsername
	}
	if avatarURL == "" {
		avatarURL = DefaultAvatarURL
	}
	return &DiscordSender{session: session, username: username, avatarURL: avatarURL}, nil
}

// Send executes the webhook with a single embed and waits for Discord to
// accept the message.
func (s *DiscordSender) Send(ctx context.Context, hook Webhook, embed *discordgo.MessageEmbed) error {
	_, err := s.session.WebhookExecute(hook.ID, hook.Token, true, &discordgo.WebhookParams{
		Username:  s.username,
		AvatarURL: s.avatarURL,
		Embeds:    []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to execute webhook %s: %w", hook.ID, err)
	}
	return nil
}
