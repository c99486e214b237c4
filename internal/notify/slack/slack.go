// Package slack delivers notify events to a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/folio/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// poster is the subset of the Slack client used here, for mocking.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Options configures a Notifier.
type Options struct {
	BotToken string
	Channel  string
	Client   poster // optional, overrides BotToken
}

// Notifier posts events as message attachments.
type Notifier struct {
	client      poster
	channel     string
	baseBackoff time.Duration
}

// New creates a Slack notifier.
func New(opts Options) (*Notifier, error) {
	if opts.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		client = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: client, channel: opts.Channel, baseBackoff: time.Second}, nil
}

// Notify implements notify.Notifier.
func (n *Notifier) Notify(ctx context.Context, e notify.Event) error {
	options := []slackapi.MsgOption{
		slackapi.MsgOptionText(e.Title, false),
		slackapi.MsgOptionAttachments(eventToAttachment(e)),
	}
	err := n.retryOnRateLimit(ctx, func() error {
		_, _, postErr := n.client.PostMessageContext(ctx, n.channel, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

func eventToAttachment(e notify.Event) slackapi.Attachment {
	att := slackapi.Attachment{
		Color:     e.Color,
		Title:     e.Title,
		TitleLink: e.URL,
		Text:      e.Body,
		Fallback:  e.Title,
	}
	for _, f := range e.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}

// retryOnRateLimit retries fn while Slack answers with a rate limit, honoring
// Retry-After when present.
func (n *Notifier) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return err
		}
		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * n.baseBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
