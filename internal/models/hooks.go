package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// BeforeCreate assigns a UUID when the ID is empty.
func (r *Resume) BeforeCreate(*gorm.DB) error { newID(&r.ID); return nil }

func (e *Experience) BeforeCreate(*gorm.DB) error     { newID(&e.ID); return nil }
func (a *Artifact) BeforeCreate(*gorm.DB) error       { newID(&a.ID); return nil }
func (p *Project) BeforeCreate(*gorm.DB) error        { newID(&p.ID); return nil }
func (rp *ResumeProject) BeforeCreate(*gorm.DB) error { newID(&rp.ID); return nil }
func (m *Message) BeforeCreate(*gorm.DB) error        { newID(&m.ID); return nil }
func (s *Stage) BeforeCreate(*gorm.DB) error          { newID(&s.ID); return nil }
func (u *Upload) BeforeCreate(*gorm.DB) error         { newID(&u.ID); return nil }
func (i *Interest) BeforeCreate(*gorm.DB) error       { newID(&i.ID); return nil }

// BeforeCreate assigns a UUID and normalizes labels.
func (t *Ticket) BeforeCreate(*gorm.DB) error {
	newID(&t.ID)
	t.Labels = NormalizeLabels(t.Labels)
	return nil
}

// BeforeSave keeps labels a set on every write.
func (t *Ticket) BeforeSave(*gorm.DB) error {
	t.Labels = NormalizeLabels(t.Labels)
	return nil
}
