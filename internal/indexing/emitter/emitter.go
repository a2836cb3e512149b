// Package emitter turns classified SQL events into Discord embeds and posts
// them to the internal and external webhooks.
package emitter

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Webhook addresses one Discord webhook.
type Webhook struct {
	ID    string `yaml:"id"`
	Token string `yaml:"token"`
}

// Configured reports whether the webhook can be posted to.
func (w Webhook) Configured() bool {
	return w.ID != "" && w.Token != ""
}

// Sender delivers a single embed to a webhook.
type Sender interface {
	Send(ctx context.Context, hook Webhook, embed *discordgo.MessageEmbed) error
}
