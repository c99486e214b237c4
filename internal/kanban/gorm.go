package kanban

import (
	"context"
	"fmt"

	"github.com/zulandar/folio/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultStages are seeded, in this order, into an empty board.
var DefaultStages = []string{"New", "In Progress", "Review", "Completed"}

// EnsureDefaultStages creates the default stages when the stage table is
// empty. The check and inserts share a transaction, and a title clash from a
// concurrent seeder is skipped rather than duplicated.
func EnsureDefaultStages(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Stage{}).Count(&n).Error; err != nil {
			return fmt.Errorf("kanban: count stages: %w", err)
		}
		if n > 0 {
			return nil
		}
		for i, title := range DefaultStages {
			s := models.Stage{Title: title, OrderIndex: i}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "title"}},
				DoNothing: true,
			}).Create(&s).Error
			if err != nil {
				return fmt.Errorf("kanban: seed stage %q: %w", title, err)
			}
		}
		return nil
	})
}

// GormRemote stores the board in the kanban_stages and kanban_tickets tables.
type GormRemote struct {
	db *gorm.DB
}

// NewGormRemote returns a Remote backed by db.
func NewGormRemote(db *gorm.DB) *GormRemote {
	return &GormRemote{db: db}
}

// ListStages returns every stage in display order.
func (r *GormRemote) ListStages(ctx context.Context) ([]*models.Stage, error) {
	var stages []*models.Stage
	if err := r.db.WithContext(ctx).Order("order_index").Order("created_at").Order("id").Find(&stages).Error; err != nil {
		return nil, fmt.Errorf("kanban: list stages: %w", err)
	}
	return stages, nil
}

// ListTickets returns every ticket ordered within its stage.
func (r *GormRemote) ListTickets(ctx context.Context) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	if err := r.db.WithContext(ctx).Order("order_index").Order("created_at").Order("id").Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("kanban: list tickets: %w", err)
	}
	return tickets, nil
}

// SeedStages creates the default stages when none exist.
func (r *GormRemote) SeedStages(ctx context.Context) error {
	return EnsureDefaultStages(r.db.WithContext(ctx))
}

// CreateStage inserts s.
func (r *GormRemote) CreateStage(ctx context.Context, s *models.Stage) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("kanban: create stage %q: %w", s.Title, err)
	}
	return nil
}

// CreateTicket inserts t.
func (r *GormRemote) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("kanban: create ticket: %w", err)
	}
	return nil
}

// UpdateTicket writes every column except id, created_at, stage and order.
func (r *GormRemote) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	res := r.db.WithContext(ctx).
		Model(t).
		Select("*").
		Omit("id", "created_at", "stage_id", "order_index").
		Updates(t)
	if res.Error != nil {
		return fmt.Errorf("kanban: update ticket %s: %w", t.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("kanban: update ticket %s: %w", t.ID, ErrTicketNotFound)
	}
	return nil
}

// DeleteTicket removes the ticket, or reports ErrTicketNotFound.
func (r *GormRemote) DeleteTicket(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Ticket{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("kanban: delete ticket %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("kanban: delete ticket %s: %w", id, ErrTicketNotFound)
	}
	return nil
}

// PlaceTickets writes stage and order of every placement in one transaction.
func (r *GormRemote) PlaceTickets(ctx context.Context, placements []Placement) error {
	if len(placements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range placements {
			res := tx.Model(&models.Ticket{}).Where("id = ?", p.ID).UpdateColumns(map[string]any{
				"stage_id":    p.StageID,
				"order_index": p.Order,
			})
			if res.Error != nil {
				return fmt.Errorf("kanban: place ticket %s: %w", p.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("kanban: place ticket %s: %w", p.ID, ErrTicketNotFound)
			}
		}
		return nil
	})
}
