// Package discord delivers notify events to a Discord channel.
package discord

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/folio/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// sender is the subset of discordgo.Session used here, for mocking.
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Options configures a Notifier.
type Options struct {
	BotToken string
	Channel  string
	Session  sender // optional, overrides BotToken
}

// Notifier posts events as embeds. Only the REST API is used, so no gateway
// connection is opened.
type Notifier struct {
	session     sender
	channel     string
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// New creates a Discord notifier.
func New(opts Options) (*Notifier, error) {
	if opts.Channel == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	s := opts.Session
	if s == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		s = dg
	}
	return &Notifier{
		session:     s,
		channel:     opts.Channel,
		baseBackoff: time.Second,
		maxBackoff:  30 * time.Second,
	}, nil
}

// Notify implements notify.Notifier.
func (n *Notifier) Notify(ctx context.Context, e notify.Event) error {
	embed := eventToEmbed(e)
	err := n.retryOnRateLimit(ctx, func() error {
		_, sendErr := n.session.ChannelMessageSendEmbed(n.channel, embed, discordgo.WithContext(ctx))
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

func eventToEmbed(e notify.Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Body,
		URL:         e.URL,
	}
	if e.Color != "" {
		embed.Color = parseHexColor(e.Color)
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}

func (n *Notifier) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var restErr *discordgo.RESTError
		if !errors.As(err, &restErr) || restErr.Response == nil ||
			restErr.Response.StatusCode != http.StatusTooManyRequests || attempt == maxRetries {
			return err
		}
		wait := time.Duration(math.Pow(2, float64(attempt))) * n.baseBackoff
		if wait > n.maxBackoff {
			wait = n.maxBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
