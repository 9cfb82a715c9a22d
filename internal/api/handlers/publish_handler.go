package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/service"
	"github.com/almgren/publika/internal/transfer"
)

// PublishHandler serves the per-platform publish endpoints. Unlike the post
// orchestrator this path targets exactly one platform and returns the raw
// outcome, error message included, in the response body.
type PublishHandler struct {
	resolver   service.TokenResolver
	publishers map[string]service.Publisher
}

func NewPublishHandler(resolver service.TokenResolver, publishers map[string]service.Publisher) *PublishHandler {
	return &PublishHandler{
		resolver:   resolver,
		publishers: publishers,
	}
}

func (h *PublishHandler) PublishToPlatform(c *fiber.Ctx) error {
	userID := GetUserID(c)
	workspaceID := GetWorkspaceID(c)
	platform := normalizePlatform(c.Params("platform"))

	var req transfer.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(transfer.PublishResponse{
			Error: "Unable to parse request body",
		})
	}

	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(transfer.PublishResponse{
			Error: "content cannot be empty",
		})
	}

	cred, err := h.resolver.Resolve(c.Context(), workspaceID, userID, platform, req.SelectedPageID)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(transfer.PublishResponse{
			Error: err.Error(),
		})
	}

	publisher, ok := h.publishers[platform]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(transfer.PublishResponse{
			Error: "Publishing to this platform is not supported",
		})
	}

	post := models.SocialPost{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Content:     req.Content,
		PostType:    models.PostTypeText,
	}

	outcome, err := publisher.Publish(c.Context(), &post, cred)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadGateway).JSON(transfer.PublishResponse{
			Error: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(transfer.PublishResponse{
		Data:     outcome.ExternalRef,
		PageName: outcome.PageName,
		Message:  "Published successfully",
	})
}
