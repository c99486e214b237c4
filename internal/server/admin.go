package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/folio/internal/blocks"
	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/media"
	"github.com/zulandar/folio/internal/models"
	"github.com/zulandar/folio/internal/validation"
	"go.uber.org/zap"
)

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=new read archived"`
}

type importRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) adminRoutes(g *gin.RouterGroup) {
	resumes := &orderedAPI[*models.Resume]{
		srv:       s,
		param:     "id",
		container: "resumes",
		store:     s.resumeStore,
		newItem:   func() *models.Resume { return &models.Resume{} },
		onRemove: func(_ *gin.Context, id string) {
			s.experiences.drop(id)
			s.links.drop(id)
		},
	}
	resumes.register(g.Group("/resumes"))

	projects := &orderedAPI[*models.Project]{
		srv:       s,
		param:     "id",
		container: "projects",
		store:     s.projectStore,
		newItem:   func() *models.Project { return &models.Project{} },
		onRemove:  func(c *gin.Context, _ string) { s.reloadLinks(c.Request.Context()) },
	}
	projects.register(g.Group("/projects"))

	experiences := &orderedAPI[*models.Experience]{
		srv:       s,
		param:     "item",
		container: "experiences",
		store:     s.experienceStore,
		newItem:   func() *models.Experience { return &models.Experience{} },
		prepare: func(c *gin.Context, e *models.Experience) error {
			e.ResumeID = c.Param("id")
			return nil
		},
	}
	experiences.register(g.Group("/resumes/:id/experiences"))

	links := &orderedAPI[*models.ResumeProject]{
		srv:       s,
		param:     "item",
		container: "resume-projects",
		store:     s.linkStore,
		newItem:   func() *models.ResumeProject { return &models.ResumeProject{} },
		prepare:   s.prepareLink,
		present:   s.presentLinks,
	}
	links.register(g.Group("/resumes/:id/projects"))

	intro := &docAPI[*models.Resume]{
		srv:   s,
		store: s.resumeStore,
		doc:   func(r *models.Resume) *blocks.Document { return &r.Intro },
	}
	intro.register(g.Group("/resumes/:id"))

	content := &docAPI[*models.Project]{
		srv:   s,
		store: s.projectStore,
		doc:   func(p *models.Project) *blocks.Document { return &p.Content },
	}
	content.register(g.Group("/projects/:id"))

	g.GET("/experiences/:id/artifacts", s.handleListArtifacts)
	g.POST("/experiences/:id/artifacts", s.handleCreateArtifact)
	g.PUT("/experiences/:id/artifacts/:item", s.handleUpdateArtifact)
	g.DELETE("/experiences/:id/artifacts/:item", s.handleDeleteArtifact)

	g.GET("/kanban", s.handleBoard)
	g.POST("/kanban/tickets", s.handleCreateTicket)
	g.PUT("/kanban/tickets/:id", s.handleUpdateTicket)
	g.DELETE("/kanban/tickets/:id", s.handleDeleteTicket)
	g.POST("/kanban/tickets/:id/move", s.handleMoveTicket)
	g.POST("/kanban/drop", s.handleBoardDrop)
	g.POST("/kanban/stages", s.handleCreateStage)

	g.GET("/messages", s.handleListMessages)
	g.PATCH("/messages/:id", s.handleMarkMessage)
	g.GET("/interest", s.handleListInterest)
	g.GET("/analytics", s.handleAnalytics)

	g.GET("/uploads", s.handleListUploads)
	g.POST("/uploads", s.handleUpload)
	g.DELETE("/uploads/*path", s.handleDeleteUpload)

	g.POST("/import/github", s.handleImportGitHub)
	g.GET("/events", s.handleEvents)
}

func (s *Server) resumeStore(c *gin.Context) (*collection.Store[*models.Resume], bool) {
	return s.resumes, ensure(s, c, s.resumes)
}

func (s *Server) projectStore(c *gin.Context) (*collection.Store[*models.Project], bool) {
	return s.projects, ensure(s, c, s.projects)
}

// parentResume checks that the :id resume exists before a scoped store is
// created for it.
func (s *Server) parentResume(c *gin.Context) (string, bool) {
	if !ensure(s, c, s.resumes) {
		return "", false
	}
	id := c.Param("id")
	if _, ok := s.resumes.Get(id); !ok {
		s.fail(c, fmt.Errorf("resume %s: %w", id, errNotFound))
		return "", false
	}
	return id, true
}

func (s *Server) experienceStore(c *gin.Context) (*collection.Store[*models.Experience], bool) {
	id, ok := s.parentResume(c)
	if !ok {
		return nil, false
	}
	st := s.experiences.get(id)
	return st, ensure(s, c, st)
}

func (s *Server) linkStore(c *gin.Context) (*collection.Store[*models.ResumeProject], bool) {
	id, ok := s.parentResume(c)
	if !ok {
		return nil, false
	}
	st := s.links.get(id)
	return st, ensure(s, c, st)
}

func (s *Server) prepareLink(c *gin.Context, rp *models.ResumeProject) error {
	rp.ResumeID = c.Param("id")
	rp.Project = nil
	if !s.projects.Loaded() {
		if _, err := s.projects.Load(c.Request.Context()); err != nil {
			return err
		}
	}
	if _, ok := s.projects.Get(rp.ProjectID); !ok {
		return &validation.Error{Fields: []validation.FieldError{
			{Field: "project_id", Message: "does not name a project"},
		}}
	}
	return nil
}

// presentLinks attaches the linked project to each entry.
func (s *Server) presentLinks(items []*models.ResumeProject) any {
	for _, rp := range items {
		if p, ok := s.projects.Get(rp.ProjectID); ok {
			rp.Project = p
		}
	}
	return items
}

// reloadLinks refreshes every loaded link store after a project delete
// cascaded through them.
func (s *Server) reloadLinks(ctx context.Context) {
	s.links.each(func(resumeID string, st *collection.Store[*models.ResumeProject]) {
		if _, err := st.Load(ctx); err != nil {
			s.log.Warn("reload linked projects failed", zap.String("resume", resumeID), zap.Error(err))
		}
	})
}

func (s *Server) handleListArtifacts(c *gin.Context) {
	var out []models.Artifact
	err := s.db.WithContext(c.Request.Context()).
		Where("experience_id = ?", c.Param("id")).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		s.unavailable(c, err)
		return
	}
	if out == nil {
		out = []models.Artifact{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateArtifact(c *gin.Context) {
	var a models.Artifact
	if !bind(c, &a) {
		return
	}
	a.ID = ""
	a.ExperienceID = c.Param("id")
	if err := s.db.WithContext(c.Request.Context()).Create(&a).Error; err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleUpdateArtifact(c *gin.Context) {
	ctx := c.Request.Context()
	var a models.Artifact
	err := s.db.WithContext(ctx).
		Where("id = ? AND experience_id = ?", c.Param("item"), c.Param("id")).
		First(&a).Error
	if err != nil {
		s.fail(c, err)
		return
	}
	if !bind(c, &a) {
		return
	}
	a.ID, a.ExperienceID = c.Param("item"), c.Param("id")
	if err := s.db.WithContext(ctx).Save(&a).Error; err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleDeleteArtifact(c *gin.Context) {
	res := s.db.WithContext(c.Request.Context()).
		Where("id = ? AND experience_id = ?", c.Param("item"), c.Param("id")).
		Delete(&models.Artifact{})
	if res.Error != nil {
		s.fail(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		s.fail(c, fmt.Errorf("artifact %s: %w", c.Param("item"), errNotFound))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListMessages(c *gin.Context) {
	msgs, err := s.contact.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		s.unavailable(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (s *Server) handleMarkMessage(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	if err := s.contact.MarkStatus(c.Request.Context(), id, req.Status); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (s *Server) handleListInterest(c *gin.Context) {
	out, err := s.contact.ListInterest(c.Request.Context(), c.Query("area"))
	if err != nil {
		s.unavailable(c, err)
		return
	}
	if out == nil {
		out = []models.Interest{}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	a, err := LoadAnalytics(c.Request.Context(), s.db, time.Now())
	if err != nil {
		s.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleListUploads(c *gin.Context) {
	ups, err := s.media.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		s.unavailable(c, err)
		return
	}
	if ups == nil {
		ups = []models.Upload{}
	}
	c.JSON(http.StatusOK, ups)
}

// handleUpload stores a multipart "file" field under the "category" form
// value.
func (s *Server) handleUpload(c *gin.Context) {
	// Room for the multipart envelope on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.media.MaxBytes()+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			s.fail(c, media.ErrTooLarge)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing file: " + err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	rec, err := s.media.Save(c.Request.Context(), media.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Category:    c.PostForm("category"),
		Body:        f,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleDeleteUpload(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	if err := s.media.Delete(c.Request.Context(), rel); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleImportGitHub(c *gin.Context) {
	var req importRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = s.cfg.GitHub.Owner
	}
	if owner == "" {
		s.fail(c, &validation.Error{Fields: []validation.FieldError{
			{Field: "owner", Message: "is required when github.owner is not configured"},
		}})
		return
	}
	res, err := s.importer.Import(c.Request.Context(), owner)
	if err != nil {
		s.log.Warn("github import failed", zap.String("owner", owner), zap.Error(err))
		status := http.StatusBadGateway
		if res != nil {
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "imported": res.Imported})
			return
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
