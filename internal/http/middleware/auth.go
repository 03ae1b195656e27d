package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"docvault/internal/model"
)

// PrincipalLocalKey is the key under which the authenticated principal
// is stored in Fiber's context locals.
const PrincipalLocalKey = "principal"

// Claims is the JWT payload expected on every authenticated request.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth protects routes by requiring a valid bearer token. The token's
// subject and role become the request's principal.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		if claims.Subject == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token has no subject")
		}

		role := model.RoleUser
		if claims.Role == string(model.RoleAdmin) {
			role = model.RoleAdmin
		}
		c.Locals(PrincipalLocalKey, model.Principal{ID: claims.Subject, Role: role})

		return c.Next()
	}
}

// PrincipalFrom extracts the authenticated principal stored by Auth.
// The boolean is false on unauthenticated routes.
func PrincipalFrom(c *fiber.Ctx) (model.Principal, bool) {
	p, ok := c.Locals(PrincipalLocalKey).(model.Principal)
	return p, ok
}
