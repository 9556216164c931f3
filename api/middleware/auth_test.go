package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/otdoges/zapdev-sub005/pkg/auth"
	"github.com/otdoges/zapdev-sub005/pkg/config"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
)

func testAuthLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	cfg := config.AuthConfig{TokenSecret: "secret"}
	handler := Auth(cfg, testAuthLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.AuthConfig{TokenSecret: "secret"}
	handler := Auth(cfg, testAuthLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthSeedsIdentityContext(t *testing.T) {
	cfg := config.AuthConfig{TokenSecret: "secret"}
	token, err := pkgauth.MintIdentityToken(cfg, time.Now().UTC(), "user-1", "user@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotUser, gotEmail string
	handler := Auth(cfg, testAuthLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotEmail = EmailFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != "user-1" {
		t.Fatalf("expected user-1 in context, got %q", gotUser)
	}
	if gotEmail != "user@example.com" {
		t.Fatalf("expected email in context, got %q", gotEmail)
	}
}
