package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Use(Auth(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(p)
	})
	return app
}

func TestAuth_ValidToken(t *testing.T) {
	app := newAuthApp()

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", "user", time.Now().Add(time.Hour)))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuth_Rejections(t *testing.T) {
	app := newAuthApp()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", ""},
		{"empty subject", ""},
	}
	tests[3].header = "Bearer " + signToken(t, "u1", "user", time.Now().Add(-time.Hour))
	tests[4].header = "Bearer " + signToken(t, "", "user", time.Now().Add(time.Hour))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestAuth_RoleMapping(t *testing.T) {
	app := fiber.New()
	app.Use(Auth(testSecret))

	var got model.Principal
	app.Get("/", func(c *fiber.Ctx) error {
		got, _ = PrincipalFrom(c)
		return c.SendStatus(fiber.StatusOK)
	})

	t.Run("admin role preserved", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "root", "admin", time.Now().Add(time.Hour)))

		_, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, model.Principal{ID: "root", Role: model.RoleAdmin}, got)
	})

	t.Run("unknown role downgraded to user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", "superuser", time.Now().Add(time.Hour)))

		_, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, model.Principal{ID: "u1", Role: model.RoleUser}, got)
	})
}
