package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/middleware"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of middleware.TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jwt.MapClaims), args.Error(1)
}

func newApp(v middleware.TokenValidator) *fiber.App {
	app := fiber.New()
	app.Get("/admin/whoami", middleware.OperatorRequired(v, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(middleware.OperatorUUIDKey).(string))
	})
	return app
}

func TestOperatorRequired(t *testing.T) {
	v := new(MockTokenValidator)
	v.On("ValidateToken", "good").Return(jwt.MapClaims{"sub": "op-1"}, nil)
	v.On("ValidateToken", "bad").Return(nil, errors.New("expired"))
	app := newApp(v)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			assert.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			resp.Body.Close()
		})
	}
}
