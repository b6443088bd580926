package http_handler

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/anthanhphan/go-distributed-search/internal/node/config"
	"github.com/anthanhphan/go-distributed-search/internal/node/port"
	"github.com/anthanhphan/go-distributed-search/internal/node/service"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server exposes the cluster admin API: read the state snapshot and
// manage collections.
type Server struct {
	app     *fiber.App
	cfg     *config.Config
	service port.ClusterService
}

func NewServer(cfg *config.Config, svc port.ClusterService) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:     app,
		cfg:     cfg,
		service: svc,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/cluster/state", s.handleClusterState)
	s.app.Get("/cluster/live-nodes", s.handleLiveNodes)
	s.app.Post("/collections", s.handleCreateCollection)
	s.app.Get("/collections/:name", s.handleGetCollection)
	s.app.Delete("/collections/:name", s.handleDeleteCollection)
}

func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Server.Hostname, strconv.Itoa(s.cfg.Server.AdminPort))
	return s.app.Listen(addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown()
}

func (s *Server) handleClusterState(c *fiber.Ctx) error {
	state, err := s.service.ClusterState(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"version":     state.Version,
		"live_nodes":  state.LiveNodeNames(),
		"collections": state.Collections,
	})
}

func (s *Server) handleLiveNodes(c *fiber.Ctx) error {
	state, err := s.service.ClusterState(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"live_nodes": state.LiveNodeNames()})
}

type createCollectionRequest struct {
	Name              string `json:"name"`
	NumShards         int    `json:"num_shards"`
	ReplicationFactor int    `json:"replication_factor"`
}

func (s *Server) handleCreateCollection(c *fiber.Ctx) error {
	var req createCollectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection name is required"})
	}
	if req.NumShards == 0 {
		req.NumShards = 1
	}
	if req.ReplicationFactor == 0 {
		req.ReplicationFactor = 1
	}

	if err := s.service.CreateCollection(c.Context(), req.Name, req.NumShards, req.ReplicationFactor); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"name": req.Name})
}

func (s *Server) handleGetCollection(c *fiber.Ctx) error {
	state, err := s.service.ClusterState(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	coll := state.CollectionOrNil(c.Params("name"))
	if coll == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "collection not found"})
	}
	return c.JSON(coll)
}

func (s *Server) handleDeleteCollection(c *fiber.Ctx) error {
	if err := s.service.DeleteCollection(c.Context(), c.Params("name")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCollectionExists):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrCollectionNotFound), errors.Is(err, service.ErrShardNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidShape), errors.Is(err, service.ErrNoLiveNodes):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
