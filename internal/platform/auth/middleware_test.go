package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	if err == nil {
		t.Fatal("expected error for missing header")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			c := e.NewContext(req, httptest.NewRecorder())

			if err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "medcalc"}
	token, err := IssueToken(cfg, Principal{
		UserID:               "dr-lin",
		Name:                 "Dr. Lin",
		Roles:                []string{"physician"},
		AuthorizedCategories: []string{"PSY"},
	}, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *Principal
	h := JWTMiddleware(cfg)(func(c echo.Context) error {
		got = PrincipalFromContext(c.Request().Context())
		return okHandler(c)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.UserID != "dr-lin" || got.Name != "Dr. Lin" {
		t.Fatalf("unexpected principal %+v", got)
	}
	if len(got.AuthorizedCategories) != 1 || got.AuthorizedCategories[0] != "PSY" {
		t.Errorf("expected PSY category, got %v", got.AuthorizedCategories)
	}
	if UserIDFromContext(c.Request().Context()) != "dr-lin" {
		t.Error("expected user id on context")
	}
}

func TestJWTMiddleware_WrongKeyOrExpired(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	wrong, _ := IssueToken(JWTConfig{SigningKey: []byte("other")}, Principal{UserID: "x"}, time.Minute)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString(testSigningKey)

	for name, tok := range map[string]string{"wrong key": wrong, "expired": expired} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			c := e.NewContext(req, httptest.NewRecorder())
			if err := JWTMiddleware(cfg)(okHandler)(c); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/health")

	cfg := JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper}
	if err := JWTMiddleware(cfg)(okHandler)(c); err != nil {
		t.Fatalf("expected public path to skip auth, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	var roles []string
	h := DevAuthMiddleware()(func(c echo.Context) error {
		roles = RolesFromContext(c.Request().Context())
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("expected admin role, got %v", roles)
	}
}
