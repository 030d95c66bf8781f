// Package httpapi exposes the orchestrator over HTTP: a JSON API for token
// clients, frame endpoints for the identity channel and the board image.
package httpapi

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/park285/cheese-frames/internal/framepresenter"
	"github.com/park285/cheese-frames/internal/hubclient"
	"github.com/park285/cheese-frames/internal/orchestrator"
	"github.com/park285/cheese-frames/pkg/chessdto"
	"go.uber.org/zap"
)

// FrameValidator verifies signed frame messages.
type FrameValidator interface {
	Validate(ctx context.Context, messageHex string) (*hubclient.Action, error)
}

// PersistStats reports background persistence health.
type PersistStats interface {
	Stats() (writes, failures int64)
	LastError() string
}

type Handler struct {
	orch      *orchestrator.Orchestrator
	presenter *framepresenter.Presenter
	hub       FrameValidator
	persist   PersistStats
	logger    *zap.Logger
	started   time.Time
}

type Option func(*Handler)

// WithFrameValidator requires frame posts to carry hub-verified message bytes.
func WithFrameValidator(v FrameValidator) Option { return func(h *Handler) { h.hub = v } }

func WithPersistStats(p PersistStats) Option { return func(h *Handler) { h.persist = p } }

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(orch *orchestrator.Orchestrator, presenter *framepresenter.Presenter, opts ...Option) *Handler {
	h := &Handler{orch: orch, presenter: presenter, logger: zap.NewNop(), started: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewApp registers every route on a fresh fiber app.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(h.accessLog)

	app.Get("/health", h.health)
	app.Get("/board/:id.png", h.board)
	app.Get("/frames/:id", h.frameView)
	app.Post("/frames", h.frameAction)

	api := app.Group("/api/v1")
	api.Post("/sessions", h.createSession)
	api.Get("/sessions", h.listSessions)
	api.Get("/sessions/:id", h.inspect)
	api.Get("/sessions/:id/pgn", h.pgn)
	api.Get("/sessions/:id/archive", h.archived)
	api.Get("/sessions/:id/targets/:square", h.targets)
	api.Post("/sessions/:id/join", h.join)
	api.Post("/sessions/:id/moves", h.move)
	api.Post("/sessions/:id/resign", h.resign)
	api.Post("/sessions/:id/new", h.newGame)
	api.Post("/solo", h.solo)
	return app
}

func (h *Handler) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else {
		fields = append(fields, zap.Int("status", c.Response().StatusCode()))
	}
	h.logger.Debug("http_request", fields...)
	return err
}

func (h *Handler) health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":   "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"sessions": len(h.orch.ListSessions(c.UserContext())),
	}
	if h.persist != nil {
		writes, failures := h.persist.Stats()
		body["persistence"] = fiber.Map{
			"writes":    writes,
			"failures":  failures,
			"lastError": h.persist.LastError(),
		}
	}
	return c.JSON(body)
}

func (h *Handler) createSession(c *fiber.Ctx) error {
	view, err := h.orch.CreateSession(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *Handler) listSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": h.orch.ListSessions(c.UserContext())})
}

func (h *Handler) inspect(c *fiber.Ctx) error {
	view, err := h.orch.Inspect(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) pgn(c *fiber.Ctx) error {
	pgn, err := h.orch.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/x-chess-pgn")
	return c.SendString(pgn)
}

func (h *Handler) archived(c *fiber.Ctx) error {
	games, err := h.orch.ArchivedGames(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"games": games})
}

func (h *Handler) targets(c *fiber.Ctx) error {
	sq := strings.ToLower(c.Params("square"))
	targets, err := h.orch.ValidTargets(c.UserContext(), c.Params("id"), sq)
	if err != nil {
		return err
	}
	return c.JSON(chessdto.TargetsResponse{Square: sq, Targets: targets})
}

func (h *Handler) join(c *fiber.Ctx) error {
	var req chessdto.JoinRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.orch.JoinSession(c.UserContext(), c.Params("id"), req.Color, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) solo(c *fiber.Ctx) error {
	var req chessdto.SoloRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.orch.StartSolo(c.UserContext(), req.SessionID, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *Handler) move(c *fiber.Ctx) error {
	var req chessdto.MoveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.orch.ApplyMove(c.UserContext(), orchestrator.MoveCommand{
		SessionID: c.Params("id"),
		Token:     bearerToken(c, req.Token),
		From:      strings.ToLower(req.From),
		To:        strings.ToLower(req.To),
		Promotion: req.Promotion,
	})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) resign(c *fiber.Ctx) error {
	var req chessdto.TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.orch.Resign(c.UserContext(), c.Params("id"), bearerToken(c, req.Token), "")
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) newGame(c *fiber.Ctx) error {
	var req chessdto.TokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.orch.NewGame(c.UserContext(), c.Params("id"), bearerToken(c, req.Token), "")
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (h *Handler) board(c *fiber.Ctx) error {
	img, err := h.orch.BoardImage(c.UserContext(), c.Params("id"), strings.ToLower(c.Query("select")))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	// Frame image URLs carry a version query; direct clients revalidate.
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(img)
}
