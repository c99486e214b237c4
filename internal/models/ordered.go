package models

import "time"

// The ordered collections. Each pointer type satisfies ordering.Entity and
// can be cloned for read-only views.

func (r *Resume) Key() string        { return r.ID }
func (r *Resume) Position() int      { return r.DisplayOrder }
func (r *Resume) SetPosition(p int)  { r.DisplayOrder = p }
func (r *Resume) Created() time.Time { return r.CreatedAt }

func (p *Project) Key() string        { return p.ID }
func (p *Project) Position() int      { return p.DisplayOrder }
func (p *Project) SetPosition(n int)  { p.DisplayOrder = n }
func (p *Project) Created() time.Time { return p.CreatedAt }

func (e *Experience) Key() string        { return e.ID }
func (e *Experience) Position() int      { return e.DisplayOrder }
func (e *Experience) SetPosition(n int)  { e.DisplayOrder = n }
func (e *Experience) Created() time.Time { return e.CreatedAt }

func (rp *ResumeProject) Key() string           { return rp.ID }
func (rp *ResumeProject) Position() int         { return rp.OrderIndex }
func (rp *ResumeProject) SetPosition(n int)     { rp.OrderIndex = n }
func (rp *ResumeProject) Created() time.Time    { return rp.CreatedAt }

func (s *Stage) Key() string        { return s.ID }
func (s *Stage) Position() int      { return s.OrderIndex }
func (s *Stage) SetPosition(n int)  { s.OrderIndex = n }
func (s *Stage) Created() time.Time { return s.CreatedAt }
func (s *Stage) Clone() *Stage      { c := *s; return &c }

func (t *Ticket) Key() string        { return t.ID }
func (t *Ticket) Position() int      { return t.OrderIndex }
func (t *Ticket) SetPosition(n int)  { t.OrderIndex = n }
func (t *Ticket) Created() time.Time { return t.CreatedAt }

// Clone copies the resume, including its intro document and skills. Loaded
// associations are not carried over.
func (r *Resume) Clone() *Resume {
	c := *r
	c.Intro = r.Intro.Clone()
	c.Skills = cloneList(r.Skills)
	c.Experiences = nil
	c.Projects = nil
	return &c
}

// Clone copies the project, including its content document and lists.
func (p *Project) Clone() *Project {
	c := *p
	c.Content = p.Content.Clone()
	c.Technologies = cloneList(p.Technologies)
	c.Gallery = cloneList(p.Gallery)
	c.StartDate = clonePtr(p.StartDate)
	c.EndDate = clonePtr(p.EndDate)
	c.RepoURL = clonePtr(p.RepoURL)
	return &c
}

// Clone copies the experience with its dates, achievements and any loaded
// artifacts.
func (e *Experience) Clone() *Experience {
	c := *e
	c.StartDate = clonePtr(e.StartDate)
	c.EndDate = clonePtr(e.EndDate)
	c.Achievements = cloneList(e.Achievements)
	if e.Artifacts != nil {
		c.Artifacts = append([]Artifact(nil), e.Artifacts...)
	}
	return &c
}

// Clone copies the link and, when loaded, its project.
func (rp *ResumeProject) Clone() *ResumeProject {
	c := *rp
	if rp.Project != nil {
		c.Project = rp.Project.Clone()
	}
	return &c
}

// Clone copies the ticket with its labels, due date and message reference.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.Labels = cloneList(t.Labels)
	c.DueDate = clonePtr(t.DueDate)
	c.MessageID = clonePtr(t.MessageID)
	return &c
}

func cloneList(l StringList) StringList {
	if l == nil {
		return nil
	}
	return append(StringList(nil), l...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
