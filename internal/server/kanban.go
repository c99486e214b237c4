package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/folio/internal/drag"
	"github.com/zulandar/folio/internal/kanban"
	"github.com/zulandar/folio/internal/models"
	"golang.org/x/sync/errgroup"
)

type moveTicketRequest struct {
	StageID  string `json:"stage_id" binding:"required"`
	Position *int   `json:"position"` // nil appends
}

type createStageRequest struct {
	Title string `json:"title" binding:"required,max=128"`
}

// ensureBoard loads the board on first use.
func (s *Server) ensureBoard(c *gin.Context) bool {
	if _, ok := s.board.FirstStage(); ok {
		return true
	}
	if _, err := s.board.Load(c.Request.Context()); err != nil {
		s.unavailable(c, err)
		return false
	}
	return true
}

// handleBoard reloads the board and the unread message count together.
func (s *Server) handleBoard(c *gin.Context) {
	var (
		columns []kanban.Column
		unread  int64
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		columns, err = s.board.Load(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = UnreadMessages(ctx, s.db)
		return err
	})
	if err := g.Wait(); err != nil {
		s.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns, "unread_messages": unread})
}

func (s *Server) handleCreateTicket(c *gin.Context) {
	if !s.ensureBoard(c) {
		return
	}
	var t models.Ticket
	if !bind(c, &t) {
		return
	}
	created, err := s.board.CreateTicket(c.Request.Context(), &t)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTicket(c *gin.Context) {
	if !s.ensureBoard(c) {
		return
	}
	id := c.Param("id")
	t, ok := s.board.Ticket(id)
	if !ok {
		s.fail(c, fmt.Errorf("ticket %s: %w", id, kanban.ErrTicketNotFound))
		return
	}
	if !bind(c, t) {
		return
	}
	t.ID = id
	updated, err := s.board.UpdateTicket(c.Request.Context(), t)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTicket(c *gin.Context) {
	if !s.ensureBoard(c) {
		return
	}
	if err := s.board.DeleteTicket(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleMoveTicket places a ticket and answers with the optimistic board.
func (s *Server) handleMoveTicket(c *gin.Context) {
	if !s.ensureBoard(c) {
		return
	}
	var req moveTicketRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	var err error
	if req.Position == nil {
		err = s.board.DropOnStage(id, req.StageID)
	} else {
		err = s.board.MoveTicket(id, req.StageID, *req.Position)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"columns": s.board.Columns()})
}

func (s *Server) handleBoardDrop(c *gin.Context) {
	if !s.ensureBoard(c) {
		return
	}
	var req dropRequest
	if !bind(c, &req) {
		return
	}
	moved, err := drag.Apply(c.Request.Context(), s.board, s.board, req.ActiveID, req.OverID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"moved": moved, "columns": s.board.Columns()})
}

func (s *Server) handleCreateStage(c *gin.Context) {
	if !s.ensureBoard(c) {
		return
	}
	var req createStageRequest
	if !bind(c, &req) {
		return
	}
	stage, err := s.board.CreateStage(c.Request.Context(), req.Title)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}
