package contact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/folio/internal/config"
	"github.com/zulandar/folio/internal/db"
	"github.com/zulandar/folio/internal/kanban"
	"github.com/zulandar/folio/internal/models"
	"github.com/zulandar/folio/internal/notify"
	"github.com/zulandar/folio/internal/validation"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

type recorder struct {
	events []notify.Event
	err    error
}

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return r.err
}

type brokenTickets struct{ calls int }

func (b *brokenTickets) Load(context.Context) ([]kanban.Column, error) {
	return nil, errors.New("board offline")
}

func (b *brokenTickets) FirstStage() (*models.Stage, bool) { return nil, false }

func (b *brokenTickets) CreateTicket(context.Context, *models.Ticket) (*models.Ticket, error) {
	b.calls++
	return nil, errors.New("unreachable")
}

func countMessages(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&models.Message{}).Count(&n).Error)
	return n
}

func validForm() Form {
	return Form{Name: "  Ada Lovelace ", Email: "ada@example.com", Message: "Let's build an engine."}
}

func TestSubmit_CreatesMessageTicketAndNotification(t *testing.T) {
	gdb := testDB(t)
	board := kanban.NewBoard(kanban.NewGormRemote(gdb), kanban.Options{})
	t.Cleanup(board.Close)
	rec := &recorder{}
	svc := NewService(gdb, Options{Tickets: board, Notifier: rec, AdminURL: "https://jane.dev/admin/"})

	msg, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Ada Lovelace", msg.Name)
	assert.Equal(t, models.MessageNew, msg.Status)
	assert.Equal(t, int64(1), countMessages(t, gdb))

	// Stages were seeded on demand and the ticket sits in the first one.
	var stages []models.Stage
	require.NoError(t, gdb.Order("order_index").Find(&stages).Error)
	require.Len(t, stages, len(kanban.DefaultStages))
	var tickets []models.Ticket
	require.NoError(t, gdb.Find(&tickets).Error)
	require.Len(t, tickets, 1)
	assert.Equal(t, "New message from Ada Lovelace", tickets[0].Title)
	assert.Equal(t, stages[0].ID, tickets[0].StageID)
	require.NotNil(t, tickets[0].MessageID)
	assert.Equal(t, msg.ID, *tickets[0].MessageID)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "https://jane.dev/admin/messages/"+msg.ID, rec.events[0].URL)
}

func TestSubmit_TicketAppendsToFirstStage(t *testing.T) {
	gdb := testDB(t)
	require.NoError(t, kanban.EnsureDefaultStages(gdb))
	board := kanban.NewBoard(kanban.NewGormRemote(gdb), kanban.Options{})
	t.Cleanup(board.Close)
	svc := NewService(gdb, Options{Tickets: board})

	for _, name := range []string{"One", "Two"} {
		f := validForm()
		f.Name = name
		_, err := svc.Submit(context.Background(), f)
		require.NoError(t, err)
	}

	var tickets []models.Ticket
	require.NoError(t, gdb.Order("order_index").Find(&tickets).Error)
	require.Len(t, tickets, 2)
	assert.Equal(t, "New message from One", tickets[0].Title)
	assert.Equal(t, 0, tickets[0].OrderIndex)
	assert.Equal(t, 1, tickets[1].OrderIndex)
}

func TestSubmit_MessageSurvivesTicketFailure(t *testing.T) {
	gdb := testDB(t)
	tickets := &brokenTickets{}
	rec := &recorder{}
	svc := NewService(gdb, Options{Tickets: tickets, Notifier: rec})

	msg, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, int64(1), countMessages(t, gdb))
	assert.Equal(t, 0, tickets.calls)
	assert.Len(t, rec.events, 1, "notification still sent")
}

func TestSubmit_MessageSurvivesNotifyFailure(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb, Options{Notifier: &recorder{err: errors.New("slack down")}})

	_, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(1), countMessages(t, gdb))
}

func TestSubmit_ValidationNeverTouchesStore(t *testing.T) {
	tests := []struct {
		name  string
		form  Form
		field string
	}{
		{"missing name", Form{Email: "a@example.com", Message: "hi"}, "name"},
		{"blank name", Form{Name: "   ", Email: "a@example.com", Message: "hi"}, "name"},
		{"bad email", Form{Name: "Ada", Email: "not-an-email", Message: "hi"}, "email"},
		{"missing message", Form{Name: "Ada", Email: "a@example.com"}, "message"},
		{"long message", Form{Name: "Ada", Email: "a@example.com", Message: strings.Repeat("x", 5001)}, "message"},
		{"bad resume id", Form{Name: "Ada", Email: "a@example.com", Message: "hi", ResumeID: strPtr("nope")}, "resume_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb := testDB(t)
			tickets := &brokenTickets{}
			svc := NewService(gdb, Options{Tickets: tickets})

			_, err := svc.Submit(context.Background(), tt.form)
			var ve *validation.Error
			require.True(t, errors.As(err, &ve), "want validation error, got %v", err)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
			assert.Equal(t, int64(0), countMessages(t, gdb))
			assert.Equal(t, 0, tickets.calls)
		})
	}
}

func TestListAndMarkStatus(t *testing.T) {
	gdb := testDB(t)
	svc := NewService(gdb, Options{})
	ctx := context.Background()

	a, err := svc.Submit(ctx, validForm())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, validForm())
	require.NoError(t, err)

	require.NoError(t, svc.MarkStatus(ctx, a.ID, models.MessageRead))
	// Writing the same status again is not a miss.
	require.NoError(t, svc.MarkStatus(ctx, a.ID, models.MessageRead))

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := svc.List(ctx, models.MessageNew)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.NotEqual(t, a.ID, unread[0].ID)
}

func TestMarkStatus_Errors(t *testing.T) {
	svc := NewService(testDB(t), Options{})

	err := svc.MarkStatus(context.Background(), "missing", models.MessageRead)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.MarkStatus(context.Background(), "missing", "deleted")
	var ve *validation.Error
	assert.True(t, errors.As(err, &ve))
}

func strPtr(s string) *string { return &s }
