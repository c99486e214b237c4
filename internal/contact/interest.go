package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/folio/internal/models"
	"github.com/zulandar/folio/internal/notify"
	"github.com/zulandar/folio/internal/validation"
	"go.uber.org/zap"
)

// InterestForm is a partnership enquiry from the public site.
type InterestForm struct {
	FullName     string `json:"full_name" validate:"required,max=256"`
	Email        string `json:"email" validate:"required,email,max=256"`
	Phone        string `json:"phone" validate:"required,max=64"`
	Organization string `json:"organization" validate:"required,max=256"`
	Role         string `json:"role" validate:"required,max=256"`
	InterestArea string `json:"interest_area" validate:"required,oneof=collaboration industry funding talent advisory other"`
	Message      string `json:"message" validate:"max=5000"`
}

// SubmitInterest validates and stores one enquiry, then notifies the admin.
// A failed notification is logged only.
func (s *Service) SubmitInterest(ctx context.Context, f InterestForm) (*models.Interest, error) {
	for _, p := range []*string{&f.FullName, &f.Email, &f.Phone, &f.Organization, &f.Role, &f.InterestArea, &f.Message} {
		*p = strings.TrimSpace(*p)
	}
	if err := validation.Struct(s.validate, f); err != nil {
		return nil, err
	}

	in := &models.Interest{
		FullName:     f.FullName,
		Email:        f.Email,
		Phone:        f.Phone,
		Organization: f.Organization,
		Role:         f.Role,
		InterestArea: f.InterestArea,
		Message:      f.Message,
	}
	if err := s.db.WithContext(ctx).Create(in).Error; err != nil {
		return nil, fmt.Errorf("contact: store interest: %w", err)
	}
	log := s.log.With(zap.String("interest", in.ID))
	log.Info("interest submission received", zap.String("area", in.InterestArea))

	if err := s.notifier.Notify(ctx, notify.InterestEvent(in, s.adminURL)); err != nil {
		log.Warn("interest notification failed", zap.Error(err))
	}
	return in, nil
}

// ListInterest returns enquiries newest first, optionally for one area.
func (s *Service) ListInterest(ctx context.Context, area string) ([]models.Interest, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if area != "" {
		q = q.Where("interest_area = ?", area)
	}
	var out []models.Interest
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("contact: list interest: %w", err)
	}
	return out, nil
}
