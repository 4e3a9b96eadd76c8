package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tiliavir/timegrid/internal/store"
)

// DefaultTokenTTL is the lifetime of tokens issued by /oauth/token.
const DefaultTokenTTL = 8 * time.Hour

// Options configures a Server.
type Options struct {
	// DevMode accepts any bearer token naming an existing login.
	DevMode  bool
	TokenTTL time.Duration
	// Now decides which pay period is current. Defaults to time.Now.
	Now func() time.Time
}

// Server serves the timesheet REST API.
type Server struct {
	router *gin.Engine
	store  *store.Store
	opts   Options
}

// New creates a server backed by st.
func New(st *store.Store, opts Options) *Server {
	if !opts.DevMode && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		router: gin.Default(),
		store:  st,
		opts:   opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.POST("/oauth/token", s.issueToken)

	api := s.router.Group("/rest/user", s.requireUser)
	{
		s.RegisterRoutes(api)
	}
}

// RegisterRoutes registers the timesheet endpoints on router.
func (s *Server) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/me", s.me)
	router.GET("/timesheet/current", s.current)
	router.GET("/timesheet/custom/:date", s.custom)
	router.GET("/timesheet/next/:date", s.next)
	router.POST("/timesheet/:id/save", s.save)
	router.POST("/timesheet/:id/complete", s.complete)
	router.GET("/timesheet/:id/fix", s.fix)
	router.POST("/timesheet/:id/fix", s.fix)
	router.GET("/timesheet/:id/audit", s.audit)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	log.Printf("timegrid server listening on %s (dev mode: %v)", addr, s.opts.DevMode)
	return s.router.Run(addr)
}
