package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/contact"
	"github.com/zulandar/folio/internal/drag"
	"github.com/zulandar/folio/internal/kanban"
	"github.com/zulandar/folio/internal/media"
	"github.com/zulandar/folio/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errNotFound is answered with 404 by fail.
var errNotFound = errors.New("not found")

// bind decodes the JSON body into dst and answers 400 when it is malformed
// or fails validation.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var ve *validation.Error
	if errors.As(validation.FromValidator(err), &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
	return false
}

// fail maps an error onto a status code and JSON body.
func (s *Server) fail(c *gin.Context, err error) {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": ve.Fields})
	case errors.Is(err, errNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, collection.ErrNotFound),
		errors.Is(err, kanban.ErrTicketNotFound),
		errors.Is(err, kanban.ErrStageNotFound),
		errors.Is(err, contact.ErrNotFound),
		errors.Is(err, media.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "references a missing record"})
	case errors.Is(err, drag.ErrUnknownTarget):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, kanban.ErrNoStages):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrTooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrType):
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrCategory), errors.Is(err, media.ErrInvalidPath):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, collection.ErrClosed):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
	case errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "timed out saving changes"})
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// unavailable reports a failed load. Whatever was shown before stays valid
// on the client.
func (s *Server) unavailable(c *gin.Context, err error) {
	s.log.Warn("load failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "could not load data", "detail": err.Error()})
}

// ensure loads st on first use and answers 503 when that fails.
func ensure[T collection.Item[T]](s *Server, c *gin.Context, st *collection.Store[T]) bool {
	if st.Loaded() {
		return true
	}
	if _, err := st.Load(c.Request.Context()); err != nil {
		s.unavailable(c, err)
		return false
	}
	return true
}
