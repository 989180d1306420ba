package mirror

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"sitemirror/internal/core/job"
	"sitemirror/internal/logger"
	rds "sitemirror/internal/platform/redis"
)

type Handler struct {
	jobs   *job.Service
	mirror *Service
	redis  *rds.Service
	log    *logger.Logger
}

func NewHandler(jobs *job.Service, mirror *Service, redis *rds.Service) *Handler {
	return &Handler{jobs: jobs, mirror: mirror, redis: redis, log: logger.New("MirrorHandler")}
}

type CreateResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

type StatusResponse struct {
	Success bool              `json:"success"`
	JobID   string            `json:"job_id"`
	Status  job.Status        `json:"status"`
	Error   string            `json:"error,omitempty"`
	Result  *job.MirrorResult `json:"result,omitempty"`
}

// HandleCreate handles POST /v1/mirrors.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid body: url is required"})
	}
	id, err := h.mirror.Enqueue(c.Context(), req)
	if err != nil {
		h.log.LogErrorf("enqueue failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(CreateResponse{Success: true, JobID: id})
}

// HandleGet handles GET /v1/mirrors/:jobId.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("jobId")
	j, err := h.jobs.GetJobStatus(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}
	return c.JSON(StatusResponse{Success: true, JobID: id, Status: j.Status, Error: j.Error, Result: j.Result})
}

// HandleCancel handles DELETE /v1/mirrors/:jobId.
func (h *Handler) HandleCancel(c *fiber.Ctx) error {
	id := c.Params("jobId")
	if err := h.mirror.Cancel(id); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "job_id": id})
}

// HandleStreamLogs handles GET /v1/mirrors/:jobId/logs as an SSE stream
// of classified log lines, fed from the job's Redis channel. The stream
// ends when the job reaches a terminal status or goes quiet for too long.
func (h *Handler) HandleStreamLogs(c *fiber.Ctx) error {
	id := c.Params("jobId")
	if _, err := h.jobs.GetJobStatus(c.Context(), id); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub := h.redis.Subscribe(ctx, job.Channel(id))
		defer sub.Close()

		idle := time.NewTimer(10 * time.Minute)
		defer idle.Stop()

		for {
			select {
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				idle.Reset(10 * time.Minute)
				switch {
				case strings.HasPrefix(msg.Payload, "log:"):
					fmt.Fprintf(w, "event: log\ndata: %s\n\n", strings.TrimPrefix(msg.Payload, "log:"))
				case strings.HasPrefix(msg.Payload, "status:"):
					status := job.Status(strings.TrimPrefix(msg.Payload, "status:"))
					fmt.Fprintf(w, "event: status\ndata: %q\n\n", status)
					if status.Terminal() {
						_ = w.Flush()
						return
					}
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-idle.C:
				return
			}
		}
	}))
	return nil
}
