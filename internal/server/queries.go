package server

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/folio/internal/blocks"
	"github.com/zulandar/folio/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ResumeSummary is a visible resume as listed on the public site.
type ResumeSummary struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Skills      models.StringList `json:"skills"`
}

// ResumeDetail is a visible resume with its visible experiences and linked
// projects in display order.
type ResumeDetail struct {
	ResumeSummary
	IntroText   string              `json:"intro_text"`
	Intro       blocks.Document     `json:"intro"`
	Experiences []models.Experience `json:"experiences"`
	Projects    []models.Project    `json:"projects"`
}

func summarize(r *models.Resume) ResumeSummary {
	return ResumeSummary{
		ID:          r.ID,
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Skills:      r.Skills,
	}
}

// VisibleResumes filters resumes down to the published ones, keeping order.
func VisibleResumes(resumes []*models.Resume) []ResumeSummary {
	out := []ResumeSummary{}
	for _, r := range resumes {
		if r.IsVisible {
			out = append(out, summarize(r))
		}
	}
	return out
}

// FindVisibleResume returns the published resume with the given slug.
func FindVisibleResume(resumes []*models.Resume, slug string) (*models.Resume, bool) {
	for _, r := range resumes {
		if r.Slug == slug && r.IsVisible {
			return r, true
		}
	}
	return nil, false
}

// BuildResumeDetail assembles the public view of r from the current
// sequences of its experiences and links, so the page shows the same order
// as the admin lists. Only the visible artifacts are read from db.
func BuildResumeDetail(ctx context.Context, db *gorm.DB, r *models.Resume, exps []*models.Experience,
	links []*models.ResumeProject, project func(id string) (*models.Project, bool)) (*ResumeDetail, error) {
	detail := &ResumeDetail{
		ResumeSummary: summarize(r),
		IntroText:     r.IntroText,
		Intro:         r.Intro,
		Experiences:   []models.Experience{},
		Projects:      []models.Project{},
	}

	var ids []string
	for _, e := range exps {
		if e.IsVisible {
			ids = append(ids, e.ID)
		}
	}
	byExperience := map[string][]models.Artifact{}
	if len(ids) > 0 {
		var artifacts []models.Artifact
		err := db.WithContext(ctx).
			Where("experience_id IN ? AND is_visible = ?", ids, true).
			Order("created_at ASC, id ASC").
			Find(&artifacts).Error
		if err != nil {
			return nil, fmt.Errorf("load artifacts of %q: %w", r.Slug, err)
		}
		for _, a := range artifacts {
			byExperience[a.ExperienceID] = append(byExperience[a.ExperienceID], a)
		}
	}
	for _, e := range exps {
		if !e.IsVisible {
			continue
		}
		e.Artifacts = byExperience[e.ID]
		detail.Experiences = append(detail.Experiences, *e)
	}

	for _, l := range links {
		if p, ok := project(l.ProjectID); ok {
			detail.Projects = append(detail.Projects, *p)
		}
	}
	return detail, nil
}

// UnreadMessages counts messages nobody has looked at yet.
func UnreadMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.Message{}).Where("status = ?", models.MessageNew).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// Analytics is the admin overview of content and inbound contact.
type Analytics struct {
	Messages    MessageStats     `json:"messages"`
	Resumes     int64            `json:"resumes"`
	Experiences VisibilityCount  `json:"experiences"`
	Projects    ProjectStats     `json:"projects"`
	Interest    map[string]int64 `json:"interest_by_area"`
}

// MessageStats counts contact messages.
type MessageStats struct {
	Total     int64            `json:"total"`
	Today     int64            `json:"today"`
	ThisWeek  int64            `json:"this_week"`
	ThisMonth int64            `json:"this_month"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByResume  []NamedCount     `json:"by_resume"`
}

// VisibilityCount is a total with the published share.
type VisibilityCount struct {
	Total   int64 `json:"total"`
	Visible int64 `json:"visible"`
}

// ProjectStats counts projects.
type ProjectStats struct {
	Total    int64            `json:"total"`
	Featured int64            `json:"featured"`
	ByStatus map[string]int64 `json:"by_status"`
}

// NamedCount is one row of a grouped count.
type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Period starts for the message counts: midnight today, midnight on the
// most recent Sunday and the first of the month, all in now's location.
func periodStarts(now time.Time) (day, week, month time.Time) {
	y, m, d := now.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	week = day.AddDate(0, 0, -int(day.Weekday()))
	month = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return day, week, month
}

// LoadAnalytics runs the overview counts in parallel.
func LoadAnalytics(ctx context.Context, db *gorm.DB, now time.Time) (*Analytics, error) {
	a := &Analytics{}
	day, week, month := periodStarts(now)

	g, ctx := errgroup.WithContext(ctx)
	counts := []struct {
		dst   *int64
		model any
		where []any
	}{
		{&a.Messages.Total, &models.Message{}, nil},
		{&a.Messages.Today, &models.Message{}, []any{"created_at >= ?", day}},
		{&a.Messages.ThisWeek, &models.Message{}, []any{"created_at >= ?", week}},
		{&a.Messages.ThisMonth, &models.Message{}, []any{"created_at >= ?", month}},
		{&a.Resumes, &models.Resume{}, nil},
		{&a.Experiences.Total, &models.Experience{}, nil},
		{&a.Experiences.Visible, &models.Experience{}, []any{"is_visible = ?", true}},
		{&a.Projects.Total, &models.Project{}, nil},
		{&a.Projects.Featured, &models.Project{}, []any{"is_featured = ?", true}},
	}
	for _, c := range counts {
		g.Go(func() error {
			q := db.WithContext(ctx).Model(c.model)
			if len(c.where) > 0 {
				q = q.Where(c.where[0], c.where[1:]...)
			}
			return q.Count(c.dst).Error
		})
	}
	g.Go(func() (err error) {
		a.Messages.ByStatus, err = countBy(ctx, db, &models.Message{}, "status")
		return err
	})
	g.Go(func() (err error) {
		a.Projects.ByStatus, err = countBy(ctx, db, &models.Project{}, "status")
		return err
	})
	g.Go(func() (err error) {
		a.Interest, err = countBy(ctx, db, &models.Interest{}, "interest_area")
		return err
	})
	g.Go(func() error {
		a.Messages.ByResume = []NamedCount{}
		return db.WithContext(ctx).
			Model(&models.Message{}).
			Select("COALESCE(resumes.title, 'Unknown') AS name, count(*) AS count").
			Joins("LEFT JOIN resumes ON resumes.id = messages.resume_id").
			Where("messages.resume_id IS NOT NULL").
			Group("COALESCE(resumes.title, 'Unknown')").
			Order("count DESC, name ASC").
			Scan(&a.Messages.ByResume).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load analytics: %w", err)
	}
	return a, nil
}

func countBy(ctx context.Context, db *gorm.DB, model any, column string) (map[string]int64, error) {
	var rows []NamedCount
	err := db.WithContext(ctx).
		Model(model).
		Select(column + " AS name, count(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Count
	}
	return out, nil
}
