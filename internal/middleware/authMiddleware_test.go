package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sol1corejz/workwise/internal/auth"
	"github.com/sol1corejz/workwise/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(a *auth.Authenticator) *fiber.App {
	app := fiber.New()
	app.Use(middleware.RequestLogger)
	app.Get("/me", middleware.Auth(a), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userID": middleware.UserID(c).String(),
			"admin":  middleware.IsAdmin(c),
		})
	})
	return app
}

func TestAuth(t *testing.T) {
	a := auth.New("test-secret")
	userID := uuid.New()
	token, err := a.GenerateToken(userID, "")
	require.NoError(t, err)
	adminToken, err := a.GenerateToken(userID, auth.RoleAdmin)
	require.NoError(t, err)
	foreign, err := auth.New("other-secret").GenerateToken(userID, "")
	require.NoError(t, err)

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "cookie",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: token}) },
			wantStatus: http.StatusOK,
			wantBody:   `"admin":false`,
		},
		{
			name:       "bearer admin",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminToken) },
			wantStatus: http.StatusOK,
			wantBody:   `"admin":true`,
		},
		{
			name:       "missing",
			prepare:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Unauthorized",
		},
		{
			name:       "wrong secret",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+foreign) },
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid or expired token",
		},
	}

	app := newApp(a)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.wantBody)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, string(body), userID.String())
			}
		})
	}
}
