// Package ghimport turns a GitHub account's public repositories into
// portfolio projects.
package ghimport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Projects is the ordered project collection imports are appended to.
type Projects interface {
	Loaded() bool
	Load(ctx context.Context) ([]*models.Project, error)
	Items() []*models.Project
	Insert(ctx context.Context, p *models.Project) (*models.Project, error)
}

// Result summarises one import run.
type Result struct {
	Imported []*models.Project `json:"imported"`
	Skipped  int               `json:"skipped"`
}

// Importer lists repositories and inserts the unseen ones.
type Importer struct {
	client   *github.Client
	projects Projects
	log      *zap.Logger
}

// NewClient returns a GitHub client, authenticated when token is set.
func NewClient(ctx context.Context, token string) *github.Client {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return github.NewClient(hc)
}

// New creates an importer.
func New(client *github.Client, projects Projects, log *zap.Logger) *Importer {
	return &Importer{client: client, projects: projects, log: logging.OrNop(log)}
}

// Import adds every public, non-fork repository of owner that is not yet a
// project. Projects are matched by repository URL.
func (im *Importer) Import(ctx context.Context, owner string) (*Result, error) {
	if owner == "" {
		return nil, fmt.Errorf("ghimport: owner is required")
	}
	if !im.projects.Loaded() {
		if _, err := im.projects.Load(ctx); err != nil {
			return nil, fmt.Errorf("ghimport: %w", err)
		}
	}
	seen := make(map[string]bool)
	for _, p := range im.projects.Items() {
		if p.RepoURL != nil {
			seen[*p.RepoURL] = true
		}
	}

	repos, err := im.list(ctx, owner)
	if err != nil {
		return nil, err
	}
	res := &Result{Imported: []*models.Project{}}
	for _, r := range repos {
		if r.GetFork() || r.GetPrivate() || seen[r.GetHTMLURL()] {
			res.Skipped++
			continue
		}
		p, err := im.projects.Insert(ctx, ToProject(r))
		if err != nil {
			return res, fmt.Errorf("ghimport: insert %s: %w", r.GetFullName(), err)
		}
		seen[r.GetHTMLURL()] = true
		res.Imported = append(res.Imported, p)
	}
	im.log.Info("github import finished",
		zap.String("owner", owner),
		zap.Int("imported", len(res.Imported)),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func (im *Importer) list(ctx context.Context, owner string) ([]*github.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "pushed",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var all []*github.Repository
	for {
		repos, resp, err := im.client.Repositories.ListByUser(ctx, owner, opts)
		if err != nil {
			return nil, fmt.Errorf("ghimport: list %s: %w", owner, err)
		}
		all = append(all, repos...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// ToProject maps a repository onto a new project.
func ToProject(r *github.Repository) *models.Project {
	url := r.GetHTMLURL()
	p := &models.Project{
		Title:       r.GetName(),
		Description: r.GetDescription(),
		Status:      status(r),
		RepoURL:     &url,
	}
	if lang := r.GetLanguage(); lang != "" {
		p.Technologies = append(p.Technologies, lang)
	}
	for _, topic := range r.Topics {
		if topic != r.GetLanguage() {
			p.Technologies = append(p.Technologies, topic)
		}
	}
	if r.CreatedAt != nil {
		start := r.CreatedAt.Time
		p.StartDate = &start
	}
	if r.GetArchived() && r.PushedAt != nil {
		end := r.PushedAt.Time
		p.EndDate = &end
	}
	return p
}

func status(r *github.Repository) string {
	switch {
	case r.PushedAt == nil:
		return models.ProjectPlanned
	case r.GetArchived():
		return models.ProjectCompleted
	}
	return models.ProjectInProgress
}
