package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/folio/internal/blocks"
	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/validation"
)

// docAPI edits the block document held in one field of an ordered entity.
type docAPI[T collection.Item[T]] struct {
	srv   *Server
	store func(c *gin.Context) (*collection.Store[T], bool)
	doc   func(T) *blocks.Document

	// mu serializes read-modify-write cycles on documents.
	mu sync.Mutex
}

type addBlockRequest struct {
	Type    blocks.Type     `json:"type" binding:"required"`
	Content json.RawMessage `json:"content"`
}

type updateBlockRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

type moveBlockRequest struct {
	Direction blocks.Direction `json:"direction" binding:"required,oneof=up down"`
}

// register mounts the document routes on an item group such as /projects/:id.
func (a *docAPI[T]) register(g *gin.RouterGroup) {
	g.GET("/content", a.get)
	g.PUT("/content", a.replace)
	g.POST("/blocks", a.add)
	g.PATCH("/blocks/:block_id", a.update)
	g.DELETE("/blocks/:block_id", a.remove)
	g.POST("/blocks/:block_id/move", a.move)
}

func docBody(d blocks.Document) gin.H {
	warnings := d.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	return gin.H{"content": d, "warnings": warnings}
}

func contentError(msg string) error {
	return &validation.Error{Fields: []validation.FieldError{{Field: "content", Message: msg}}}
}

func (a *docAPI[T]) get(c *gin.Context) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	id := c.Param("id")
	item, ok := st.Get(id)
	if !ok {
		a.srv.fail(c, fmt.Errorf("%s %s: %w", st.Name(), id, errNotFound))
		return
	}
	c.JSON(http.StatusOK, docBody(*a.doc(item)))
}

// mutate applies fn to a copy of the item's document and saves the item.
func (a *docAPI[T]) mutate(c *gin.Context, status int, fn func(d *blocks.Document) (gin.H, error)) {
	st, ok := a.store(c)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	id := c.Param("id")
	item, ok := st.Get(id)
	if !ok {
		a.srv.fail(c, fmt.Errorf("%s %s: %w", st.Name(), id, errNotFound))
		return
	}
	extra, err := fn(a.doc(item))
	if err != nil {
		a.srv.fail(c, err)
		return
	}
	saved, err := st.Update(c.Request.Context(), item)
	if err != nil {
		a.srv.fail(c, err)
		return
	}
	body := docBody(*a.doc(saved))
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// replace stores a whole document. Blocks that cannot be read are dropped
// and listed in the response.
func (a *docAPI[T]) replace(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	parsed, dropped, err := blocks.Parse(data)
	if err != nil {
		a.srv.fail(c, contentError(err.Error()))
		return
	}
	if dropped == nil {
		dropped = []string{}
	}
	a.mutate(c, http.StatusOK, func(d *blocks.Document) (gin.H, error) {
		*d = parsed
		return gin.H{"dropped": dropped}, nil
	})
}

func (a *docAPI[T]) add(c *gin.Context) {
	var req addBlockRequest
	if !bind(c, &req) {
		return
	}
	if !req.Type.Known() {
		a.srv.fail(c, &validation.Error{Fields: []validation.FieldError{
			{Field: "type", Message: fmt.Sprintf("unknown block type %q", req.Type)},
		}})
		return
	}
	var content blocks.Content
	if raw := bytes.TrimSpace(req.Content); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var err error
		if content, err = blocks.DecodeContent(req.Type, raw); err != nil {
			a.srv.fail(c, contentError(err.Error()))
			return
		}
	}
	a.mutate(c, http.StatusCreated, func(d *blocks.Document) (gin.H, error) {
		id, err := d.Add(req.Type, content)
		if err != nil {
			return nil, contentError(err.Error())
		}
		return gin.H{"id": id}, nil
	})
}

func (a *docAPI[T]) update(c *gin.Context) {
	var req updateBlockRequest
	if !bind(c, &req) {
		return
	}
	blockID := c.Param("block_id")
	a.mutate(c, http.StatusOK, func(d *blocks.Document) (gin.H, error) {
		b, ok := d.Get(blockID)
		if !ok {
			return nil, fmt.Errorf("block %s: %w", blockID, errNotFound)
		}
		content, err := blocks.DecodeContent(b.Type, req.Content)
		if err != nil {
			return nil, contentError(err.Error())
		}
		if !d.Update(blockID, content) {
			return nil, contentError(fmt.Sprintf("does not fit a %s block", b.Type))
		}
		return nil, nil
	})
}

func (a *docAPI[T]) remove(c *gin.Context) {
	blockID := c.Param("block_id")
	a.mutate(c, http.StatusOK, func(d *blocks.Document) (gin.H, error) {
		if !d.Remove(blockID) {
			return nil, fmt.Errorf("block %s: %w", blockID, errNotFound)
		}
		return nil, nil
	})
}

// move shifts a block one step. At either end it saves nothing new but
// still answers with the document.
func (a *docAPI[T]) move(c *gin.Context) {
	var req moveBlockRequest
	if !bind(c, &req) {
		return
	}
	blockID := c.Param("block_id")
	a.mutate(c, http.StatusOK, func(d *blocks.Document) (gin.H, error) {
		if _, ok := d.Get(blockID); !ok {
			return nil, fmt.Errorf("block %s: %w", blockID, errNotFound)
		}
		return gin.H{"moved": d.Move(blockID, req.Direction)}, nil
	})
}
