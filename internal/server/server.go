package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/oauth2"

	"silvercal/internal/auth"
	"silvercal/internal/mapper"
	"silvercal/internal/models"
	"silvercal/internal/session"
)

const sessionCookie = "session_id"

// Resolver normalizes an utterance against a reference instant.
type Resolver interface {
	Resolve(ctx context.Context, utterance string, ref time.Time) (*models.DraftEvent, error)
}

// Gateway is the calendar store boundary, keyed by the user's access token.
type Gateway interface {
	Create(ctx context.Context, accessToken string, req models.EventRequest) (*models.RemoteEvent, error)
	ListForDay(ctx context.Context, accessToken string, day time.Time) (models.DayView, error)
	Update(ctx context.Context, accessToken, id string, req models.EventRequest) (*models.RemoteEvent, error)
	Delete(ctx context.Context, accessToken, id string) error
}

// Config wraps the knobs that impact runtime behavior.
type Config struct {
	Addr string
}

// Server exposes the Fiber application that fronts the review pipeline.
type Server struct {
	app      *fiber.App
	logger   *slog.Logger
	cfg      Config
	oauth    *oauth2.Config
	sessions *auth.Store
	reviews  *session.Registry
	resolver Resolver
	gateway  Gateway
	mapper   *mapper.Mapper

	// now is swapped out in tests.
	now func() time.Time
}

// New wires handlers and middleware.
func New(cfg Config, logger *slog.Logger, oauthCfg *oauth2.Config, sessions *auth.Store, resolver Resolver, gateway Gateway, m *mapper.Mapper) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          60 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	s := &Server{
		app:      app,
		logger:   logger,
		cfg:      cfg,
		oauth:    oauthCfg,
		sessions: sessions,
		reviews:  session.NewRegistry(),
		resolver: resolver,
		gateway:  gateway,
		mapper:   m,
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Run starts listening for HTTP traffic until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	s.logger.Info("Server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/auth/login", s.handleLogin)
	s.app.Get("/auth/callback", s.handleCallback)
	s.app.Post("/auth/logout", s.handleLogout)

	api := s.app.Group("/api", s.requireSession)
	api.Get("/me", s.handleMe)

	api.Post("/parse-schedule", s.handleParseSchedule)

	api.Post("/capture/start", s.handleCaptureStart)
	api.Post("/capture/stop", s.handleCaptureStop)

	api.Get("/review", s.handleReviewSnapshot)
	api.Post("/review/confirm", s.handleReviewConfirm)
	api.Post("/review/cancel", s.handleReviewCancel)
	api.Post("/review/acknowledge", s.handleReviewAcknowledge)

	api.Get("/calendar/get-events", s.handleGetEvents)
	api.Get("/calendar/events.ics", s.handleExportICS)
	api.Post("/calendar/add-event", s.handleAddEvent)
	api.Post("/calendar/update-event", s.handleUpdateEvent)
	api.Post("/calendar/delete-event", s.handleDeleteEvent)
	api.Post("/calendar/events/:id/edit", s.handleStartEdit)
}

// requireSession resolves the session cookie into an authenticated session.
func (s *Server) requireSession(c *fiber.Ctx) error {
	id := c.Cookies(sessionCookie)
	if id == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msgNotAuthenticated})
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msgNotAuthenticated})
	}
	c.Locals("session", sess)
	return c.Next()
}

func (s *Server) currentSession(c *fiber.Ctx) *auth.Session {
	return c.Locals("session").(*auth.Session)
}

func (s *Server) review(c *fiber.Ctx) *session.Review {
	return s.reviews.For(s.currentSession(c).ID)
}
