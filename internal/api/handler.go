package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/threadscope/threadscope/internal/analysis"
	"github.com/threadscope/threadscope/internal/store"
	"github.com/threadscope/threadscope/pkg/model"
)

// SubredditService defines the Reddit operations needed by the handlers.
type SubredditService interface {
	ListThreads(ctx context.Context, subreddit, query, sortOrder string, limit int) ([]model.Thread, error)
	GetUserContent(ctx context.Context, username, kind string, limit int) (*model.UserContent, error)
	SnapshotSubreddit(ctx context.Context, subreddit, sortOrder string, limit int) (*model.Snapshot, error)
}

// Handler handles HTTP API requests for snapshots, analyses, and user content.
type Handler struct {
	logger  *zap.Logger
	service SubredditService
	engine  *analysis.Engine
	store   store.Store
}

// NewHandler creates a new Handler.
func NewHandler(logger *zap.Logger, service SubredditService, engine *analysis.Engine, st store.Store) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		engine:  engine,
		store:   st,
	}
}

// ListThreadsHandler returns the current threads of a subreddit. A "q" query
// parameter switches to subreddit-restricted search.
func (h *Handler) ListThreadsHandler(c *fiber.Ctx) error {
	subreddit := c.Params("name")
	if err := ValidateUsername(subreddit); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	threads, err := h.service.ListThreads(c.Context(), subreddit,
		c.Query("q"), c.Query("sort", "hot"), c.QueryInt("limit", 10))
	if err != nil {
		h.logger.Error("api.list_threads.failed",
			zap.String("subreddit", subreddit),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"subreddit": subreddit,
		"count":     len(threads),
		"threads":   threads,
	})
}

// CreateSnapshotHandler captures a subreddit snapshot synchronously.
func (h *Handler) CreateSnapshotHandler(c *fiber.Ctx) error {
	var req SnapshotCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	snap, err := h.service.SnapshotSubreddit(c.Context(), req.Subreddit, req.Sort, req.Limit)
	if err != nil {
		h.logger.Error("api.create_snapshot.failed",
			zap.String("subreddit", req.Subreddit),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(snap)
}

// GetSnapshotHandler loads a snapshot by ID.
func (h *Handler) GetSnapshotHandler(c *fiber.Ctx) error {
	snap, err := h.store.GetSnapshot(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(snap)
}

// ListSnapshotsHandler returns recent snapshot headers.
func (h *Handler) ListSnapshotsHandler(c *fiber.Ctx) error {
	snaps, err := h.store.ListSnapshots(c.Context(), c.Query("subreddit"), c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"count":     len(snaps),
		"snapshots": snaps,
	})
}

// CreateAnalysisHandler starts a batch analysis run and returns 202 with the
// pending run record.
func (h *Handler) CreateAnalysisHandler(c *fiber.Ctx) error {
	var req AnalysisCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	run, err := h.engine.StartRun(c.Context(), req.SnapshotID, req.Model, req.Delay())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("api.create_analysis.failed",
			zap.String("snapshot_id", req.SnapshotID),
			zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": run.ID,
		"status": run.Status,
		"total":  run.Total,
	})
}

// GetAnalysisHandler returns a run record, including results and stats once
// the run completes.
func (h *Handler) GetAnalysisHandler(c *fiber.Ctx) error {
	run, err := h.engine.GetRun(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(run)
}

// ExportAnalysisHandler streams a completed run's results as CSV.
func (h *Handler) ExportAnalysisHandler(c *fiber.Ctx) error {
	run, err := h.engine.GetRun(c.Context(), c.Params("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if run.Status != model.RunCompleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("run %s is %s, export requires a completed run", run.ID, run.Status),
		})
	}

	filename := analysis.ExportFilename(run.StartedAt)
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))

	if err := analysis.ExportCSV(c.Response().BodyWriter(), run.Results); err != nil {
		h.logger.Error("api.export_analysis.failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return nil
}

// GetUserContentHandler returns a redditor's recent comments and submissions.
func (h *Handler) GetUserContentHandler(c *fiber.Ctx) error {
	username := c.Params("name")
	if err := ValidateUsername(username); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	kind := c.Query("kind", "both")
	switch kind {
	case "comments", "submissions", "both":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "kind must be one of comments, submissions, both",
		})
	}

	content, err := h.service.GetUserContent(c.Context(), username, kind, c.QueryInt("limit", 25))
	if err != nil {
		h.logger.Error("api.user_content.failed",
			zap.String("username", username),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(content)
}
