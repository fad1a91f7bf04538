// Package web serves the detector's HTTP surface: control endpoints, the
// live MJPEG stream, the viewer page, metrics and the websocket event feed.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/motoscan/internal/log"
	"github.com/teslashibe/motoscan/pkg/camera"
	"github.com/teslashibe/motoscan/pkg/capture"
	"github.com/teslashibe/motoscan/pkg/hub"
	"github.com/teslashibe/motoscan/pkg/metrics"
	"github.com/teslashibe/motoscan/pkg/report"
)

// Capture is the capture service as seen by the handlers.
type Capture interface {
	Start(opts capture.Options) (bool, error)
	Stop()
	Status() capture.Status
	Store() *capture.Store
	Processor() capture.Processor
}

// Credential reports whether a backend token is held.
type Credential interface {
	Valid() bool
}

// Deps are the collaborators the handlers use. Session, Limiter, Metrics,
// Probe and DetectorParams may be nil.
type Deps struct {
	Capture        Capture
	Camera         *camera.Manager
	Hub            *hub.Hub
	Session        Credential
	Limiter        *report.Limiter
	Metrics        *metrics.Metrics
	Probe          func(ctx context.Context, limit int) []camera.Info
	DetectorParams func() any
}

// Options configure the HTTP server.
type Options struct {
	CORSOrigins string
	Debug       bool

	// StreamInterval paces MJPEG parts; NoFrameWait is the poll delay
	// while no frame is available. KeepAlive is how long an idle stream
	// goes without a write.
	StreamInterval time.Duration
	NoFrameWait    time.Duration
	KeepAlive      time.Duration
}

// Server is the detector web server
type Server struct {
	app    *fiber.App
	opts   Options
	deps   Deps
	logger *slog.Logger

	// closed on Shutdown so open streams end
	done     chan struct{}
	doneOnce sync.Once
}

// NewServer creates the server and registers all routes.
func NewServer(opts Options, deps Deps) *Server {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 33 * time.Millisecond
	}
	if opts.NoFrameWait <= 0 {
		opts.NoFrameWait = 50 * time.Millisecond
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 5 * time.Second
	}

	s := &Server{
		opts:   opts,
		deps:   deps,
		logger: log.With("component", "web"),
		done:   make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "motoscan",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if opts.Debug {
		app.Use(logger.New())
	}
	corsCfg := cors.ConfigDefault
	if opts.CORSOrigins != "" {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	app.Use(cors.New(corsCfg))

	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/ui") })
	app.Get("/ui", s.handleUI)
	app.Get("/health", s.handleHealth)

	app.Post("/start", s.handleStart)
	app.Post("/stop", s.handleStop)
	app.Get("/status", s.handleStatus)
	app.Get("/debug", s.handleDebug)
	app.Get("/stream", s.handleStream)
	app.Get("/cameras", s.handleCameras)

	app.Get("/config", s.handleGetConfig)
	app.Post("/config", s.handleSetConfig)
	app.Get("/camera", s.handleGetCamera)
	app.Post("/camera", s.handleSetCamera)

	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	if deps.Hub != nil {
		// WebSocket upgrade middleware
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/events", websocket.New(func(c *websocket.Conn) {
			deps.Hub.Serve(c)
		}))
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("web server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown ends open streams and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.app.ShutdownWithContext(ctx)
}
