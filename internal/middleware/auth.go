package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig carries the credentials the auth middleware checks against.
type AuthConfig struct {
	// APISecret is the shared secret accepted via X-Api-Key header or
	// api_key query param. When empty the API is open (dev mode).
	APISecret string
	// JWTSecret, when set, additionally accepts HMAC-signed bearer tokens
	// and exposes the sub claim to handlers as c.Locals("userID").
	JWTSecret string
}

// RequireAuth validates that the request carries a valid API secret or
// bearer token. Internals of token issuance live with the auth provider;
// this middleware only consumes the yes/no decision plus caller identity.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.APISecret == "" {
			// Secret not configured — open in dev
			return c.Next()
		}

		if c.Get("X-Api-Key") == cfg.APISecret || c.Query("api_key") == cfg.APISecret {
			return c.Next()
		}

		if cfg.JWTSecret != "" {
			if sub, ok := bearerSubject(c.Get(fiber.HeaderAuthorization), cfg.JWTSecret); ok {
				if sub != "" {
					c.Locals("userID", sub)
				}
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}
}

// bearerSubject parses an Authorization header and returns the token's sub
// claim when the signature checks out.
func bearerSubject(header, secret string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token, err := jwt.Parse(strings.TrimPrefix(header, prefix), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", true
	}
	sub, _ := claims.GetSubject()
	return sub, true
}
