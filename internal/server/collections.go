package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/drag"
)

type reorderRequest struct {
	ID       string `json:"id" binding:"required"`
	Position *int   `json:"position" binding:"required"`
}

type dropRequest struct {
	ActiveID string `json:"active_id" binding:"required"`
	OverID   string `json:"over_id"`
}

// orderedAPI serves CRUD and reordering for one kind of ordered collection.
type orderedAPI[T collection.Item[T]] struct {
	srv       *Server
	param     string // path parameter naming an item
	container string // drop target id meaning "end of the list"
	store     func(c *gin.Context) (*collection.Store[T], bool)
	newItem   func() T
	prepare   func(c *gin.Context, item T) error // pins path-derived fields
	present   func(items []T) any
	onRemove  func(c *gin.Context, id string)
}

func (a *orderedAPI[T]) register(g *gin.RouterGroup) {
	g.GET("", a.list)
	g.POST("", a.create)
	g.POST("/reorder", a.reorder)
	g.POST("/drop", a.drop)
	g.GET("/:"+a.param, a.get)
	g.PUT("/:"+a.param, a.update)
	g.DELETE("/:"+a.param, a.remove)
}

func (a *orderedAPI[T]) render(items []T) any {
	if a.present != nil {
		return a.present(items)
	}
	return items
}

func (a *orderedAPI[T]) list(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.render(st.Items()))
}

func (a *orderedAPI[T]) get(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	id := c.Param(a.param)
	item, ok := st.Get(id)
	if !ok {
		a.srv.fail(c, fmt.Errorf("%s %s: %w", st.Name(), id, errNotFound))
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *orderedAPI[T]) create(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	item := a.newItem()
	if !bind(c, item) {
		return
	}
	if a.prepare != nil {
		if err := a.prepare(c, item); err != nil {
			a.srv.fail(c, err)
			return
		}
	}
	created, err := st.Insert(c.Request.Context(), item)
	if err != nil {
		a.srv.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// update overlays the request body on the current item, so omitted fields
// keep their values.
func (a *orderedAPI[T]) update(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	id := c.Param(a.param)
	item, ok := st.Get(id)
	if !ok {
		a.srv.fail(c, fmt.Errorf("%s %s: %w", st.Name(), id, errNotFound))
		return
	}
	if !bind(c, item) {
		return
	}
	if item.Key() != id {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id does not match the path"})
		return
	}
	if a.prepare != nil {
		if err := a.prepare(c, item); err != nil {
			a.srv.fail(c, err)
			return
		}
	}
	updated, err := st.Update(c.Request.Context(), item)
	if err != nil {
		a.srv.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (a *orderedAPI[T]) remove(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	id := c.Param(a.param)
	if err := st.Remove(c.Request.Context(), id); err != nil {
		a.srv.fail(c, err)
		return
	}
	if a.onRemove != nil {
		a.onRemove(c, id)
	}
	c.Status(http.StatusNoContent)
}

// reorder applies the move optimistically and answers with the resulting
// sequence before the write is confirmed.
func (a *orderedAPI[T]) reorder(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	if err := st.MoveItem(req.ID, *req.Position); err != nil {
		a.srv.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"items": a.render(st.Items())})
}

func (a *orderedAPI[T]) drop(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	var req dropRequest
	if !bind(c, &req) {
		return
	}
	target := drag.ListMover{Seq: st, ContainerID: a.container}
	moved, err := drag.Apply(c.Request.Context(), target, target, req.ActiveID, req.OverID)
	if err != nil {
		a.srv.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"moved": moved, "items": a.render(st.Items())})
}
