package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/curapost/internal/models"
	"github.com/maheshrc27/curapost/internal/service"
	"github.com/maheshrc27/curapost/internal/transfer"
)

// PublishEnqueuer schedules a worker-side publish for a post.
type PublishEnqueuer interface {
	EnqueuePublish(ctx context.Context, postID int64, scheduledAt time.Time) error
}

type PostHandler struct {
	scheduler  service.SchedulerService
	dispatcher service.DispatchService
	curation   service.CurationService
	enqueuer   PublishEnqueuer
}

func NewPostHandler(
	scheduler service.SchedulerService,
	dispatcher service.DispatchService,
	curation service.CurationService,
	enqueuer PublishEnqueuer) *PostHandler {
	return &PostHandler{
		scheduler:  scheduler,
		dispatcher: dispatcher,
		curation:   curation,
		enqueuer:   enqueuer,
	}
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	productID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req transfer.ScheduleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse request body",
			})
		}
	}
	req.ProductID = productID

	post, err := h.scheduler.SchedulePost(c.Context(), req)
	if err != nil {
		if post != nil {
			// created but the immediate publish could not run
			return c.Status(errorStatus(err)).JSON(fiber.Map{
				"error": err.Error(),
				"post":  post,
			})
		}
		return errorResponse(c, err)
	}

	if post.Status == models.PostStatusScheduled {
		if err := h.curation.MarkPosted(c.Context(), productID, nil); err != nil {
			slog.Error("failed to mark product posted", "product_id", productID, "error", err)
		}
		if h.enqueuer != nil {
			if err := h.enqueuer.EnqueuePublish(c.Context(), post.ID, post.ScheduledAt); err != nil {
				slog.Warn("failed to enqueue publish task", "post_id", post.ID, "error", err)
			}
		}
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) DispatchDue(c *fiber.Ctx) error {
	published, err := h.dispatcher.RunDue(c.Context(), time.Now())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"published": published})
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	post, err := h.dispatcher.Publish(c.Context(), postID, time.Now())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	status := models.PostStatus(c.Query("status"))
	switch status {
	case "", models.PostStatusScheduled, models.PostStatusPosted, models.PostStatusFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}

	limit, offset := pagination(c)
	posts, err := h.curation.ListPosts(c.Context(), status, limit, offset)
	if err != nil {
		return errorResponse(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	post, err := h.curation.GetPost(c.Context(), postID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.curation.DeletePost(c.Context(), postID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
