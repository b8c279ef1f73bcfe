package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdMarket/app/models"
	"github.com/ManuelReschke/AdMarket/internal/pkg/auth"
	"github.com/ManuelReschke/AdMarket/internal/pkg/usercontext"
)

// lastSeenResolution limits how often a user's last_login_at is rewritten.
const lastSeenResolution = time.Hour

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// UserLookup loads the local user record of a token subject.
type UserLookup interface {
	GetByID(id uint) (*models.User, error)
	TouchLastLogin(id uint, at time.Time) error
}

// BearerAuthMiddleware resolves the Authorization header into a user
// context. Requests without a header continue anonymously so public routes
// keep working; an invalid token is rejected outright. The role comes from
// the user record, not the token.
func BearerAuthMiddleware(tokens TokenValidator, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired token"})
		}
		userID, _ := claims.UserID()

		user, err := users.GetByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown user"})
			}
			log.Errorf("[Auth] user lookup %d failed: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token verification failed"})
		}
		if !user.IsActive() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive"})
		}

		now := time.Now()
		if user.LastLoginAt == nil || now.Sub(*user.LastLoginAt) > lastSeenResolution {
			if err := users.TouchLastLogin(user.ID, now); err != nil {
				log.Warnf("[Auth] failed to update last login for user %d: %v", user.ID, err)
			}
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			Role:       user.Role,
			IsLoggedIn: true,
			IsAdmin:    user.IsAdmin(),
		})
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
