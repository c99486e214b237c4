// Package server is the HTTP API: public portfolio reads, the contact form
// and the authenticated admin surface.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/go-github/v68/github"
	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/config"
	"github.com/zulandar/folio/internal/contact"
	"github.com/zulandar/folio/internal/ghimport"
	"github.com/zulandar/folio/internal/kanban"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/media"
	"github.com/zulandar/folio/internal/models"
	"github.com/zulandar/folio/internal/notify"
	"github.com/zulandar/folio/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options holds what a Server is built from.
type Options struct {
	DB       *gorm.DB
	Config   *config.Config
	Logger   *zap.Logger
	Notifier notify.Notifier
	GitHub   *github.Client // optional, built from config when nil
}

// Server owns the in-memory stores and the router serving them.
type Server struct {
	db  *gorm.DB
	cfg *config.Config
	log *zap.Logger
	hub *Hub

	resumes     *collection.Store[*models.Resume]
	projects    *collection.Store[*models.Project]
	experiences *scoped[*models.Experience]
	links       *scoped[*models.ResumeProject]
	board       *kanban.Board

	contact  *contact.Service
	media    *media.Store
	importer *ghimport.Importer

	router *gin.Engine
}

var bindingOnce sync.Once

// New builds a server. Stores load lazily on first use.
func New(opts Options) (*Server, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	bindingOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.UseJSONNames(v)
		}
	})

	cfg := opts.Config
	s := &Server{
		db:  opts.DB,
		cfg: cfg,
		log: logging.OrNop(opts.Logger),
		hub: NewHub(),
	}
	timeout := cfg.Persistence.Timeout

	s.resumes = collection.New[*models.Resume](
		collection.NewGormRemote[models.Resume](s.db, "display_order"),
		s.storeOptions("resumes"))
	s.projects = collection.New[*models.Project](
		collection.NewGormRemote[models.Project](s.db, "display_order"),
		s.storeOptions("projects"))
	s.experiences = newScoped(func(resumeID string) *collection.Store[*models.Experience] {
		return collection.New[*models.Experience](
			collection.NewGormRemote[models.Experience](s.db, "display_order", collection.Scope{Column: "resume_id", Value: resumeID}),
			s.storeOptions("experiences"))
	})
	s.links = newScoped(func(resumeID string) *collection.Store[*models.ResumeProject] {
		return collection.New[*models.ResumeProject](
			collection.NewGormRemote[models.ResumeProject](s.db, "order_index", collection.Scope{Column: "resume_id", Value: resumeID}),
			s.storeOptions("resume_projects"))
	})
	s.board = kanban.NewBoard(kanban.NewGormRemote(s.db), kanban.Options{
		Timeout: timeout,
		Logger:  s.log,
		OnError: s.publishRevert("kanban"),
	})

	s.contact = contact.NewService(s.db, contact.Options{
		Tickets:  s.board,
		Notifier: opts.Notifier,
		AdminURL: strings.TrimRight(cfg.Site.BaseURL, "/") + "/admin",
		Logger:   s.log,
	})
	s.media = media.NewStore(s.db, cfg.Media, s.log)
	gh := opts.GitHub
	if gh == nil {
		gh = ghimport.NewClient(context.Background(), cfg.GitHub.Token)
	}
	s.importer = ghimport.New(gh, s.projects, s.log)

	s.router = s.routes()
	return s, nil
}

func (s *Server) storeOptions(name string) collection.Options {
	return collection.Options{
		Name:    name,
		Timeout: s.cfg.Persistence.Timeout,
		Logger:  s.log,
		OnError: s.publishRevert(name),
	}
}

// publishRevert tells connected admin clients that a write was rolled back.
func (s *Server) publishRevert(source string) func(error) {
	return func(err error) {
		s.hub.Publish(Event{Type: "revert", Source: source, Message: err.Error(), At: time.Now().UTC()})
	}
}

// Handler returns the router.
func (s *Server) Handler() *gin.Engine { return s.router }

// Hub returns the admin event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Close drains every persistence queue.
func (s *Server) Close() {
	s.resumes.Close()
	s.projects.Close()
	s.experiences.closeAll()
	s.links.closeAll()
	s.board.Close()
	s.hub.Close()
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int, out io.Writer) error {
	if port <= 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.Close()
		srv.Shutdown(shutdownCtx)
	}()

	if out != nil {
		fmt.Fprintf(out, "Folio running at http://localhost:%d\n", port)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(recovery(s.log), requestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/media/*path", s.handleMedia)

	pub := r.Group("/api")
	pub.GET("/resumes", s.handlePublicResumes)
	pub.GET("/resumes/:slug", s.handlePublicResume)
	pub.GET("/projects", s.handlePublicProjects)
	pub.GET("/projects/:id", s.handlePublicProject)
	pub.POST("/contact", s.handleContact)
	pub.POST("/interest", s.handleInterest)

	admin := r.Group("/api/admin", adminAuth(s.cfg.Server.AdminToken))
	s.adminRoutes(admin)
	return r
}

// recovery is the last-resort error boundary: a panicking handler is logged
// and the client is told to reload.
func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		log.Error("handler panic",
			zap.Any("panic", err),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "action": "reload"})
	})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()),
		}
		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}

// adminAuth requires "Authorization: Bearer <token>". EventSource clients
// cannot set headers, so the token may also come as ?access_token=.
func adminAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok {
			got = c.Query("access_token")
		}
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
