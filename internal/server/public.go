package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/folio/internal/contact"
	"github.com/zulandar/folio/internal/media"
	"github.com/zulandar/folio/internal/models"
)

func (s *Server) handlePublicResumes(c *gin.Context) {
	if !ensure(s, c, s.resumes) {
		return
	}
	c.JSON(http.StatusOK, VisibleResumes(s.resumes.Items()))
}

func (s *Server) handlePublicResume(c *gin.Context) {
	if !ensure(s, c, s.resumes) {
		return
	}
	slug := c.Param("slug")
	r, ok := FindVisibleResume(s.resumes.Items(), slug)
	if !ok {
		s.fail(c, fmt.Errorf("resume %q: %w", slug, errNotFound))
		return
	}
	exps, links := s.experiences.get(r.ID), s.links.get(r.ID)
	if !ensure(s, c, exps) || !ensure(s, c, links) || !ensure(s, c, s.projects) {
		return
	}
	detail, err := BuildResumeDetail(c.Request.Context(), s.db, r, exps.Items(), links.Items(), s.projects.Get)
	if err != nil {
		s.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handlePublicProjects(c *gin.Context) {
	if !ensure(s, c, s.projects) {
		return
	}
	items := s.projects.Items()
	if c.Query("featured") == "true" {
		featured := make([]*models.Project, 0, len(items))
		for _, p := range items {
			if p.IsFeatured {
				featured = append(featured, p)
			}
		}
		items = featured
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handlePublicProject(c *gin.Context) {
	if !ensure(s, c, s.projects) {
		return
	}
	id := c.Param("id")
	p, ok := s.projects.Get(id)
	if !ok {
		s.fail(c, fmt.Errorf("project %s: %w", id, errNotFound))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleContact(c *gin.Context) {
	var f contact.Form
	if err := c.ShouldBindJSON(&f); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	msg, err := s.contact.Submit(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": msg.ID, "status": msg.Status})
}

func (s *Server) handleInterest(c *gin.Context) {
	var f contact.InterestForm
	if err := c.ShouldBindJSON(&f); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	in, err := s.contact.SubmitInterest(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": in.ID})
}

func (s *Server) handleMedia(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	f, err := s.media.Open(rel)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.fail(c, fmt.Errorf("%s: %w", rel, media.ErrNotFound))
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
