package handlers

import (
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/models"
	"github.com/almgren/publika/internal/service"
	"github.com/almgren/publika/pkg/utils"
)

type PlatformHandler struct {
	ps  service.PlatformService
	reg service.RegistryService
	rc  service.Reconciler
	fb  service.FacebookService
	ig  service.InstagramService
	th  service.ThreadsService
	tt  service.TiktokService
	yt  service.YoutubeService
	tw  service.TwitterService
	cfg config.Config
}

func NewPlatformHandler(
	ps service.PlatformService,
	reg service.RegistryService,
	rc service.Reconciler,
	fb service.FacebookService,
	ig service.InstagramService,
	th service.ThreadsService,
	tt service.TiktokService,
	yt service.YoutubeService,
	tw service.TwitterService,
	cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		reg: reg,
		rc:  rc,
		fb:  fb,
		ig:  ig,
		th:  th,
		tt:  tt,
		yt:  yt,
		tw:  tw,
		cfg: cfg,
	}
}

// normalizePlatform maps the route value to the storage key. The frontend
// and the routes say "twitter"; storage says "x".
func normalizePlatform(platform string) string {
	if platform == "twitter" {
		return models.PlatformTwitter
	}
	return platform
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	platform := normalizePlatform(c.Params("platform"))
	state := c.Query("state")

	// X uses PKCE: mint a fresh verifier per authorization and re-sign the
	// state so the callback gets it back without server-side storage.
	var codeVerifier string
	if platform == models.PlatformTwitter {
		claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to validate user",
			})
		}

		codeVerifier, err = utils.GenerateCodeVerifier()
		if err != nil {
			slog.Info(err.Error())
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "something went wrong",
			})
		}

		state, err = utils.GenerateStateToken(h.cfg.SecretKey, claims.UserID, claims.WorkspaceID, codeVerifier, 15*time.Minute)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "something went wrong",
			})
		}
	}

	authURL := h.ps.GetAuthURL(c.Context(), platform, state, codeVerifier)
	if authURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}
	return c.Redirect(authURL)
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := normalizePlatform(c.Params("platform"))

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	workspaceID, err := strconv.ParseInt(claims.WorkspaceID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	switch platform {
	case models.PlatformFacebook:
		err = h.fb.FacebookCallback(c.Context(), code, userID, workspaceID)
	case models.PlatformInstagram:
		err = h.ig.InstagramCallback(c.Context(), code, userID, workspaceID)
	case models.PlatformThreads:
		err = h.th.ThreadsCallback(c.Context(), code, userID, workspaceID)
	case models.PlatformTiktok:
		err = h.tt.TiktokCallback(c.Context(), code, userID, workspaceID)
	case models.PlatformYoutube:
		err = h.yt.YoutubeCallback(c.Context(), code, userID)
	case models.PlatformTwitter:
		if claims.CodeVerifier == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to validate user",
			})
		}
		err = h.tw.TwitterCallback(c.Context(), code, claims.CodeVerifier, userID, workspaceID)
	case models.PlatformLinkedin:
		err = h.ps.LinkedinCallback(c.Context(), code, userID, workspaceID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown platform",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	if err := h.rc.Invalidate(c.Context(), workspaceID, userID); err != nil {
		slog.Info(err.Error())
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	workspaceID := GetWorkspaceID(c)

	accountList, err := h.reg.ListConnectedAccounts(c.Context(), workspaceID, userID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DisconnectPlatform(c *fiber.Ctx) error {
	userID := GetUserID(c)
	workspaceID := GetWorkspaceID(c)
	platform := normalizePlatform(c.Query("platform"))

	err := h.reg.Disconnect(c.Context(), workspaceID, userID, platform)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect platform",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// GetConnections returns the per-platform connection map the composer grid
// renders from. Keys are display names, so "x" comes back as "twitter".
func (h *PlatformHandler) GetConnections(c *fiber.Ctx) error {
	userID := GetUserID(c)
	workspaceID := GetWorkspaceID(c)

	connections, err := h.rc.ConnectionMap(c.Context(), workspaceID, userID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch connections",
		})
	}

	return c.Status(fiber.StatusOK).JSON(connections)
}
