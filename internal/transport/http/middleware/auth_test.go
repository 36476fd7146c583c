package middleware_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims middleware.Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testApp() (*fiber.App, *domain.Principal) {
	var captured domain.Principal
	app := fiber.New()
	app.Get("/protected", middleware.NewAuthMiddleware(testSecret), func(c *fiber.Ctx) error {
		principal, _ := middleware.PrincipalFromCtx(c)
		captured = principal
		return c.SendStatus(fiber.StatusOK)
	})
	return app, &captured
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	app, captured := testApp()

	token := signToken(t, middleware.Claims{
		UserID: 7,
		Role:   "vendor",
		Email:  "vendor@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	assert.Equal(t, int64(7), captured.UserID)
	assert.Equal(t, domain.RoleVendor, captured.Role)
	assert.Equal(t, "vendor@example.com", captured.Email)
}

func TestAuthMiddlewareDefaultsUnknownRoleToCustomer(t *testing.T) {
	app, captured := testApp()

	token := signToken(t, middleware.Claims{
		UserID: 7,
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, domain.RoleCustomer, captured.Role)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	app, _ := testApp()

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "malformed header", header: "Token abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{
			name: "wrong secret",
			header: "Bearer " + signToken(t, middleware.Claims{
				UserID: 7,
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}, "other-secret"),
		},
		{
			name: "expired token",
			header: "Bearer " + signToken(t, middleware.Claims{
				UserID: 7,
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				},
			}, testSecret),
		},
		{
			name: "no user id",
			header: "Bearer " + signToken(t, middleware.Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}, testSecret),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			res, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
		})
	}
}
