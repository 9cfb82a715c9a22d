package middleware

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	config "github.com/almgren/publika/configs"
	"github.com/almgren/publika/internal/service"
	"github.com/almgren/publika/pkg/utils"
)

type AuthMiddleware struct {
	k   service.ApiKeyService
	u   service.UserService
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config, k service.ApiKeyService, u service.UserService) *AuthMiddleware {
	return &AuthMiddleware{k: k, u: u, cfg: cfg}
}

func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		apiKey := c.Query("api_key")

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Keys or cookies",
			})
		}

		if apiKey != "" {
			userID, err := m.k.GetUserID(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}

			user, err := m.u.GetUserInfo(c.Context(), userID)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}

			c.Locals("user_id", fmt.Sprintf("%d", userID))
			c.Locals("workspace_id", fmt.Sprintf("%d", user.WorkspaceID))
		} else if tokenString != "" {

			claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
			if err != nil {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1, // Delete cookie
				})

				log.Printf("Token validation failed: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}

			c.Locals("user_id", claims.UserID)
			c.Locals("workspace_id", claims.WorkspaceID)
		}
		return c.Next()
	}
}
