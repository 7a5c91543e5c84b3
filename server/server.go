// Package server exposes sessions over HTTP and websockets.
package server

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/metrics"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/sessions"
	"github.com/Desarso/docassist/summarize"
)

//go:embed static
var staticFiles embed.FS

// multipartOverhead is the room left for form fields around the file.
const multipartOverhead = 1 << 20

// Options wires the server to its services.
type Options struct {
	Manager    *sessions.Manager
	Summarizer *summarize.Summarizer
	Metrics    *metrics.Metrics
	Profiles   []sessions.Profile
	// Health reports whether backing services are reachable.
	Health         func() error
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *log.Logger
}

// Server is the HTTP surface.
type Server struct {
	opts     Options
	engine   *gin.Engine
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Logger.WithPrefix("[HTTP]")
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:   opts,
		engine: gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: opts.Logger,
	}
	s.engine.MaxMultipartMemory = models.MaxUploadBytes + multipartOverhead
	s.engine.Use(gin.Recovery(), requestLogger(s.logger, opts.Metrics))
	s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	r := s.engine

	static, _ := fs.Sub(staticFiles, "static")
	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})
	r.GET("/healthz", s.health)
	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}

	api := r.Group("/api", rateLimit(newLimiterPool(s.opts.RateLimitRPS, s.opts.RateLimitBurst), s.opts.Metrics))
	api.GET("/profiles", s.listProfiles)
	api.POST("/sessions", s.createSession)
	api.GET("/sessions/:id", s.getSession)
	api.DELETE("/sessions/:id", s.deleteSession)
	api.POST("/sessions/:id/upload", s.upload)
	api.DELETE("/sessions/:id/upload", s.clearUpload)
	api.GET("/sessions/:id/upload/preview", s.preview)
	api.POST("/sessions/:id/messages", s.submit)
	api.POST("/sessions/:id/clear", s.newChat)
	api.GET("/sessions/:id/ws", s.serveWebSocket)
	api.POST("/summary", s.summary)
}

func (s *Server) health(c *gin.Context) {
	if s.opts.Health != nil {
		if err := s.opts.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": s.opts.Profiles})
}

func (s *Server) createSession(c *gin.Context) {
	var req models.Session_Request
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}
	controller, err := s.opts.Manager.Create(req.Profile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, controller.View())
}

func (s *Server) getSession(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, controller.View())
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.opts.Manager.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) upload(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	filename, data, err := s.readUpload(c)
	if err != nil {
		s.writeResult(c, sessions.Result{Session: controller.View(), Notice: sessions.NoticeFor(err), Err: err})
		return
	}
	s.writeResult(c, controller.SetUpload(filename, data))
}

func (s *Server) clearUpload(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	s.writeResult(c, controller.ClearUpload())
}

func (s *Server) preview(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	preview, err := controller.Preview()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, preview.MediaType, preview.Data)
}

func (s *Server) submit(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	var req models.Chat_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	result := controller.Submit(c.Request.Context(), req.Text)
	c.JSON(StatusFor(result.Err), models.Chat_Response{
		Reply:  result.Reply,
		Turns:  result.Session.Turns,
		Notice: result.Notice,
		Usage:  result.Usage,
		Upload: result.Session.Upload,
	})
}

func (s *Server) newChat(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	s.writeResult(c, controller.NewChat())
}

func (s *Server) serveWebSocket(c *gin.Context) {
	controller, ok := s.controller(c)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	session := sessions.NewWSSession(controller, conn)
	if err := session.Run(c.Request.Context()); err != nil {
		s.logger.Warn("websocket session ended", "session", controller.ID(), "err", err)
	}
}

func (s *Server) summary(c *gin.Context) {
	if s.opts.Summarizer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "summaries are not enabled"})
		return
	}
	filename, data, err := s.readUpload(c)
	if err != nil {
		c.JSON(StatusFor(err), gin.H{"error": err.Error(), "notice": sessions.NoticeFor(err)})
		return
	}

	report, err := s.opts.Summarizer.Summarize(c.Request.Context(), models.Upload{Filename: filename, Data: data})
	if err != nil {
		c.JSON(StatusFor(err), gin.H{"error": err.Error(), "notice": sessions.NoticeFor(err)})
		return
	}
	if c.Query("download") != "" {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": summarize.DownloadName(filename)}))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report.Text()))
		return
	}
	c.JSON(http.StatusOK, report)
}

// readUpload reads the multipart field "file", enforcing the size cap
// before the body is buffered.
func (s *Server) readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, models.MaxUploadBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, models.ErrUploadTooLarge
		}
		return "", nil, &badRequestError{err}
	}
	if header.Size > models.MaxUploadBytes {
		return header.Filename, nil, models.ErrUploadTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, &badRequestError{err}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, &badRequestError{err}
	}
	return header.Filename, data, nil
}

func (s *Server) controller(c *gin.Context) (*sessions.Controller, bool) {
	controller, err := s.opts.Manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	controller.Touch()
	return controller, true
}

func (s *Server) writeResult(c *gin.Context, result sessions.Result) {
	c.JSON(StatusFor(result.Err), result)
}
