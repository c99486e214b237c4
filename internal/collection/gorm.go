package collection

import (
	"context"
	"fmt"

	"github.com/zulandar/folio/internal/ordering"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope restricts a remote to rows whose Column equals Value.
type Scope struct {
	Column string
	Value  any
}

// GormRemote stores an ordered collection in a GORM table. E is the model
// struct and P its pointer type.
type GormRemote[E any, P interface {
	*E
	ordering.Entity
}] struct {
	db          *gorm.DB
	orderColumn string
	scopes      []Scope
}

// NewGormRemote returns a remote over E's table ordered by orderColumn.
func NewGormRemote[E any, P interface {
	*E
	ordering.Entity
}](db *gorm.DB, orderColumn string, scopes ...Scope) *GormRemote[E, P] {
	return &GormRemote[E, P]{db: db, orderColumn: orderColumn, scopes: scopes}
}

func (r *GormRemote[E, P]) scoped(ctx context.Context) *gorm.DB {
	tx := r.db.WithContext(ctx)
	for _, s := range r.scopes {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: s.Column}, Value: s.Value})
	}
	return tx
}

// List returns every row in scope sorted by order value, creation time and id.
func (r *GormRemote[E, P]) List(ctx context.Context) ([]P, error) {
	var rows []P
	err := r.scoped(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: r.orderColumn}}).
		Order("created_at").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("collection: list: %w", err)
	}
	return rows, nil
}

// Create inserts item.
func (r *GormRemote[E, P]) Create(ctx context.Context, item P) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("collection: create: %w", err)
	}
	return nil
}

// Update writes every column except the order value, id and creation time.
func (r *GormRemote[E, P]) Update(ctx context.Context, item P) error {
	res := r.scoped(ctx).
		Model(item).
		Select("*").
		Omit("id", "created_at", r.orderColumn, clause.Associations).
		Updates(item)
	if res.Error != nil {
		return fmt.Errorf("collection: update %s: %w", item.Key(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("collection: update %s: %w", item.Key(), ErrNotFound)
	}
	return nil
}

// UpdateOrders writes all order changes in one transaction.
func (r *GormRemote[E, P]) UpdateOrders(ctx context.Context, updates []ordering.Update) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			q := tx.Model(new(E)).Where("id = ?", u.ID)
			for _, s := range r.scopes {
				q = q.Where(clause.Eq{Column: clause.Column{Name: s.Column}, Value: s.Value})
			}
			res := q.UpdateColumn(r.orderColumn, u.Order)
			if res.Error != nil {
				return fmt.Errorf("collection: update order of %s: %w", u.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("collection: update order of %s: %w", u.ID, ErrNotFound)
			}
		}
		return nil
	})
}

// Delete removes the row with the given id.
func (r *GormRemote[E, P]) Delete(ctx context.Context, id string) error {
	res := r.scoped(ctx).Where("id = ?", id).Delete(new(E))
	if res.Error != nil {
		return fmt.Errorf("collection: delete %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("collection: delete %s: %w", id, ErrNotFound)
	}
	return nil
}
