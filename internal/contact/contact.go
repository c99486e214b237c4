// Package contact handles public contact-form submissions and the admin
// inbox built from them.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zulandar/folio/internal/kanban"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/models"
	"github.com/zulandar/folio/internal/notify"
	"github.com/zulandar/folio/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a message id does not exist.
var ErrNotFound = errors.New("contact: message not found")

// Form is a contact submission as received from the public site.
type Form struct {
	Name     string  `json:"name" validate:"required,max=256"`
	Email    string  `json:"email" validate:"required,email,max=256"`
	Message  string  `json:"message" validate:"required,max=5000"`
	ResumeID *string `json:"resume_id" validate:"omitempty,uuid"`
}

// Tickets is the part of the kanban board intake needs.
type Tickets interface {
	Load(ctx context.Context) ([]kanban.Column, error)
	FirstStage() (*models.Stage, bool)
	CreateTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
}

// Options configures a Service.
type Options struct {
	Tickets  Tickets         // optional
	Notifier notify.Notifier // optional
	AdminURL string          // link target for notifications
	Logger   *zap.Logger
}

// Service stores messages and fans out their side effects.
type Service struct {
	db       *gorm.DB
	tickets  Tickets
	notifier notify.Notifier
	adminURL string
	log      *zap.Logger
	validate *validator.Validate
}

// NewService creates a contact service backed by db.
func NewService(db *gorm.DB, opts Options) *Service {
	n := opts.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{
		db:       db,
		tickets:  opts.Tickets,
		notifier: n,
		adminURL: strings.TrimRight(opts.AdminURL, "/"),
		log:      logging.OrNop(opts.Logger),
		validate: validation.New(),
	}
}

// Submit validates the form and stores exactly one message. A follow-up
// ticket and a notification are attempted afterwards; their failures are
// logged and do not affect the result.
func (s *Service) Submit(ctx context.Context, f Form) (*models.Message, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)
	if err := validation.Struct(s.validate, f); err != nil {
		return nil, err
	}

	msg := &models.Message{
		Name:     f.Name,
		Email:    f.Email,
		Body:     f.Message,
		ResumeID: f.ResumeID,
		Status:   models.MessageNew,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("contact: store message: %w", err)
	}
	log := s.log.With(zap.String("message", msg.ID))
	log.Info("contact message received")

	if err := s.openTicket(ctx, msg); err != nil {
		log.Warn("follow-up ticket not created", zap.Error(err))
	}
	if err := s.notifier.Notify(ctx, notify.MessageEvent(msg, s.adminURL)); err != nil {
		log.Warn("message notification failed", zap.Error(err))
	}
	return msg, nil
}

func (s *Service) openTicket(ctx context.Context, msg *models.Message) error {
	if s.tickets == nil {
		return nil
	}
	if _, ok := s.tickets.FirstStage(); !ok {
		if _, err := s.tickets.Load(ctx); err != nil {
			return err
		}
	}
	_, err := s.tickets.CreateTicket(ctx, &models.Ticket{
		Title:       "New message from " + msg.Name,
		Description: fmt.Sprintf("From: %s <%s>\n\n%s", msg.Name, msg.Email, msg.Body),
		MessageID:   &msg.ID,
		Labels:      models.StringList{"contact"},
	})
	return err
}

// List returns messages newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("contact: list messages: %w", err)
	}
	return msgs, nil
}

// MarkStatus sets the status of a message.
func (s *Service) MarkStatus(ctx context.Context, id, status string) error {
	if !models.ValidMessageStatus(status) {
		return &validation.Error{Fields: []validation.FieldError{
			{Field: "status", Message: "must be one of: new read archived"},
		}}
	}
	result := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("contact: mark %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("contact: mark %s: %w", id, ErrNotFound)
	}
	return nil
}
