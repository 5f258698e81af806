package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"recipe_server/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newAuthApp() (*fiber.App, *domain.IdentityClaims) {
	captured := &domain.IdentityClaims{}
	app := fiber.New()
	app.Use(JWTAuth(testSecret))
	app.Get("/protected", func(c *fiber.Ctx) error {
		if claims := ClaimsFromCtx(c); claims != nil {
			*captured = *claims
		}
		return c.SendStatus(200)
	})
	return app, captured
}

func TestJWTAuthValidToken(t *testing.T) {
	app, captured := newAuthApp()

	token := signToken(t, jwt.MapClaims{
		"sub":   "subject-1",
		"email": "cook@example.com",
		"name":  "Cook",
		"admin": true,
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	}, testSecret)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if captured.Email != "cook@example.com" {
		t.Errorf("expected email claim carried through, got %q", captured.Email)
	}
	if captured.SubjectID != "subject-1" {
		t.Errorf("expected subject claim, got %q", captured.SubjectID)
	}
	if !captured.Admin {
		t.Error("expected admin claim carried through")
	}
}

func TestJWTAuthRejections(t *testing.T) {
	app, _ := newAuthApp()

	expired := signToken(t, jwt.MapClaims{
		"email": "late@example.com",
		"exp":   float64(time.Now().Add(-time.Hour).Unix()),
	}, testSecret)
	wrongKey := signToken(t, jwt.MapClaims{
		"email": "forged@example.com",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	}, "other-secret")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != 401 {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestJWTAuthSkipsPreflight(t *testing.T) {
	app := fiber.New()
	app.Use(JWTAuth(testSecret))
	app.Options("/protected", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	req := httptest.NewRequest("OPTIONS", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 204 {
		t.Errorf("expected preflight to pass through, got %d", resp.StatusCode)
	}
}
