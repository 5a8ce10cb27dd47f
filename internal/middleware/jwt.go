package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudi_pay/internal/apperr"
	"github.com/kudipay/kudi_pay/internal/auth"
	"github.com/kudipay/kudi_pay/internal/ledger"
)

// JWTAuth validates bearer tokens and confirms the subject still exists (and
// is not soft-deleted) before letting the request through.
func JWTAuth(tokens *auth.TokenIssuer, store ledger.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return apperr.E(apperr.Unauthorized, "missing bearer token")
		}

		claims, err := tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return apperr.E(apperr.Unauthorized, "invalid token")
		}

		if _, err := store.UserByID(c.UserContext(), claims.UserID); err != nil {
			return apperr.E(apperr.Unauthorized, "token subject no longer active")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_email", claims.Email)
		return c.Next()
	}
}
