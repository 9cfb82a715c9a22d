package handlers

import (
	"log/slog"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/almgren/publika/internal/queue"
	"github.com/almgren/publika/internal/service"
	"github.com/almgren/publika/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	workspaceID := GetWorkspaceID(c)

	var files []*multipart.FileHeader
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		files = form.File["files"]
	}

	pc := transfer.PostCreation{
		Content:       c.FormValue("content"),
		Platforms:     c.FormValue("platforms"),
		PageTargets:   c.FormValue("page_targets"),
		Intent:        c.FormValue("intent"),
		ScheduledTime: c.FormValue("scheduling_time"),
		AIGenerated:   c.FormValue("ai_generated") == "true",
	}

	postID, delay, err := h.s.CreatePost(c.Context(), userID, workspaceID, &pc, files)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if pc.Intent == transfer.IntentSchedule {
		err = queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{PostID: postID}, delay)
		if err != nil {
			slog.Error(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error scheduling post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"id":      postID,
			"message": "Post scheduled successfully",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      postID,
		"message": "Post created successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), workspaceID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list posts",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), workspaceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostResults(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	postID := c.QueryInt("id", 0)

	results, err := h.s.Results(c.Context(), int64(postID), workspaceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get publish results",
		})
	}

	return c.Status(fiber.StatusOK).JSON(results)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	workspaceID := GetWorkspaceID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), workspaceID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
