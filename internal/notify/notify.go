// Package notify sends admin alerts (new contact messages, daily digests) to
// chat platforms.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/folio/internal/models"
)

// Sidebar colors understood by both Slack attachments and Discord embeds.
const (
	ColorInfo    = "#439fe0"
	ColorSuccess = "#36a64f"
	ColorWarning = "#daa038"
)

// Event is a platform-neutral notification.
type Event struct {
	Title  string
	Body   string
	Color  string
	URL    string
	Fields []Field
}

// Field is a key-value pair shown with an event.
type Field struct {
	Name  string
	Value string
	Short bool // render side-by-side with another field
}

// Notifier delivers events to one destination.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// MessageEvent describes a new contact message.
func MessageEvent(m *models.Message, adminURL string) Event {
	e := Event{
		Title: fmt.Sprintf("New message from %s", m.Name),
		Body:  truncate(m.Body, 500),
		Color: ColorInfo,
		Fields: []Field{
			{Name: "Email", Value: m.Email, Short: true},
		},
	}
	if m.ResumeID != nil {
		e.Fields = append(e.Fields, Field{Name: "Resume", Value: *m.ResumeID, Short: true})
	}
	if adminURL != "" {
		e.URL = adminURL + "/messages/" + m.ID
	}
	return e
}

// InterestEvent describes a new partnership enquiry.
func InterestEvent(i *models.Interest, adminURL string) Event {
	e := Event{
		Title: fmt.Sprintf("%s from %s is interested in %s", i.FullName, i.Organization, i.InterestArea),
		Body:  truncate(i.Message, 500),
		Color: ColorSuccess,
		Fields: []Field{
			{Name: "Email", Value: i.Email, Short: true},
			{Name: "Phone", Value: i.Phone, Short: true},
			{Name: "Role", Value: i.Role, Short: true},
		},
	}
	if adminURL != "" {
		e.URL = adminURL + "/interest"
	}
	return e
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
