package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"doccatalog/internal/identity"
)

// Auth verifies the bearer token and installs the owner in the request's
// user context. Requests without a valid token stop here with 401.
func Auth(v identity.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		owner, err := v.Verify(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}
		c.SetUserContext(identity.WithOwner(c.UserContext(), owner))
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
