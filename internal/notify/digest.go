package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Report is the content of one digest.
type Report struct {
	GeneratedAt   time.Time
	NewMessages   int64
	RecentSenders []string
	Stages        []StageCount
}

// StageCount is the number of tickets in one stage.
type StageCount struct {
	Title   string
	Tickets int64
}

// Digest periodically summarises unread messages and open tickets.
type Digest struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewDigest returns a digest that reads from db and sends through n.
func NewDigest(db *gorm.DB, n Notifier, log *zap.Logger) *Digest {
	return &Digest{db: db, notifier: n, log: logging.OrNop(log), now: time.Now}
}

// Build gathers the report. It returns nil when there are no unread
// messages.
func (d *Digest) Build(ctx context.Context) (*Report, error) {
	tx := d.db.WithContext(ctx)
	r := &Report{GeneratedAt: d.now()}

	if err := tx.Model(&models.Message{}).Where("status = ?", models.MessageNew).Count(&r.NewMessages).Error; err != nil {
		return nil, fmt.Errorf("notify: count messages: %w", err)
	}
	if r.NewMessages == 0 {
		return nil, nil
	}
	var recent []models.Message
	err := tx.Where("status = ?", models.MessageNew).
		Order("created_at DESC").
		Limit(5).
		Find(&recent).Error
	if err != nil {
		return nil, fmt.Errorf("notify: recent messages: %w", err)
	}
	for _, m := range recent {
		r.RecentSenders = append(r.RecentSenders, m.Name)
	}

	var stages []models.Stage
	if err := tx.Order("order_index").Order("created_at").Find(&stages).Error; err != nil {
		return nil, fmt.Errorf("notify: list stages: %w", err)
	}
	var counts []struct {
		StageID string
		N       int64
	}
	err = tx.Model(&models.Ticket{}).
		Select("stage_id, count(*) as n").
		Group("stage_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("notify: count tickets: %w", err)
	}
	byStage := make(map[string]int64, len(counts))
	for _, c := range counts {
		byStage[c.StageID] = c.N
	}
	for _, s := range stages {
		r.Stages = append(r.Stages, StageCount{Title: s.Title, Tickets: byStage[s.ID]})
	}
	return r, nil
}

// Event formats a report for chat.
func (r *Report) Event() Event {
	e := Event{
		Title: fmt.Sprintf("%d unread message(s)", r.NewMessages),
		Color: ColorWarning,
	}
	if len(r.RecentSenders) > 0 {
		e.Body = "Latest from " + strings.Join(r.RecentSenders, ", ")
	}
	for _, s := range r.Stages {
		e.Fields = append(e.Fields, Field{Name: s.Title, Value: strconv.FormatInt(s.Tickets, 10), Short: true})
	}
	return e
}

// Send builds and delivers one digest. It reports whether anything was sent.
func (d *Digest) Send(ctx context.Context) (bool, error) {
	r, err := d.Build(ctx)
	if err != nil {
		return false, err
	}
	if r == nil {
		d.log.Debug("digest skipped, nothing new")
		return false, nil
	}
	if err := d.notifier.Notify(ctx, r.Event()); err != nil {
		return false, fmt.Errorf("notify: send digest: %w", err)
	}
	d.log.Info("digest sent", zap.Int64("new_messages", r.NewMessages))
	return true, nil
}

// Schedule registers Send on a standard 5-field cron spec. The caller starts
// and stops the returned scheduler.
func (d *Digest) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := d.Send(ctx); err != nil {
			d.log.Warn("scheduled digest failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("notify: digest schedule %q: %w", spec, err)
	}
	return c, nil
}
