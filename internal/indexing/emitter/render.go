package emitter

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

const (
	embedTitle   = "New SQL Logs"
	embedColor   = 0x815691
	footerText   = "❤️ SQL Logs Bot"
	notAvailable = "N/A"

	// Discord caps a field value at 1024 characters; the code fence and
	// ellipsis take the rest.
	maxStatementLen = 1013

	DefaultUsername      = "SQL Logs Bot"
	DefaultAvatarURL     = "https://bafybeiezqhnetm6iidwpkpcmaoczjvlldxauffs5566t5sungxqabgtm7q.ipfs.nftstorage.link/"
	DefaultFooterIconURL = "https://bafkreihrg4iddyor2ei6mxxdy6hqnjsmquzcnllvoqndfb636i5s4yinma.ipfs.nftstorage.link/"
)

// Renderer builds one embed per event.
type Renderer struct {
	ChainName     func(domain.ChainID) string
	FooterIconURL string
	Now           func() time.Time
}

// NewRenderer creates a renderer using names for chain labels. Chains missing
// from names fall back to the built-in registry.
func NewRenderer(names map[domain.ChainID]string, footerIconURL string) *Renderer {
	if footerIconURL == "" {
		footerIconURL = DefaultFooterIconURL
	}
	return &Renderer{
		ChainName: func(id domain.ChainID) string {
			if name, ok := names[id]; ok {
				return name
			}
			return domain.ChainName(id)
		},
		FooterIconURL: footerIconURL,
		Now:           time.Now,
	}
}

// Render formats ev as a Discord embed.
func (r *Renderer) Render(ev domain.ClassifiedEvent) *discordgo.MessageEmbed {
	statement := ev.Statement
	if !ev.HasError() {
		// Reverted statements are often not valid SQL, leave them as sent.
		statement = FormatSQL(statement)
	}

	tableName := notAvailable
	if ev.TableName != nil {
		tableName = *ev.TableName
	}
	caller := notAvailable
	if ev.Caller != nil {
		caller = *ev.Caller
	}
	kind := "mutating query"
	if ev.EventType == domain.EventTypeCreateTable {
		kind = "table creation"
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Chain", Value: r.ChainName(ev.ChainID), Inline: true},
		{
			Name:   "Table ID",
			Value:  hyperlink(ev.TableID, fmt.Sprintf("%s/tables/%d/%s", ev.BaseURL, ev.ChainID, ev.TableID)),
			Inline: true,
		},
		{Name: "Table Name", Value: tableName, Inline: true},
		{Name: "Block", Value: fmt.Sprintf("%d", ev.BlockNumber), Inline: true},
		{
			Name:   "Transaction",
			Value:  hyperlink(ev.TxHash, fmt.Sprintf("%s/receipt/%d/%s", ev.BaseURL, ev.ChainID, ev.TxHash)),
			Inline: true,
		},
		{Name: bold("Caller"), Value: caller, Inline: true},
		{
			Name:  fmt.Sprintf("Statement (%s)", kind),
			Value: codeBlock(Truncate(statement, maxStatementLen)),
		},
	}

	switch {
	case ev.HasError():
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Error", Value: codeBlock(Truncate(*ev.Error, maxStatementLen))})
	case ev.TableName != nil:
		link := fmt.Sprintf("%s/query?statement=select%%20*%%20from%%20%s%%20limit%%205", ev.BaseURL, *ev.TableName)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "\n",
			Value: bold("Inspect table data:") + " " + hyperlink("here", link),
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "\u200b", Value: " "})

	return &discordgo.MessageEmbed{
		Title:     embedTitle,
		Color:     embedColor,
		Fields:    fields,
		Timestamp: r.Now().UTC().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text:    footerText,
			IconURL: r.FooterIconURL,
		},
	}
}

func bold(s string) string {
	return "**" + s + "**"
}

func hyperlink(text, url string) string {
	return "[" + text + "](" + url + ")"
}

func codeBlock(s string) string {
	return "```\n" + s + "\n```"
}
