package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	PrincipalKey contextKey = "principal"
)

const (
	defaultIssuer   = "medcalc"
	defaultTokenTTL = time.Hour
)

// Claims carried by medcalc bearer tokens. AuthorizedCategories lists the
// sensitivity categories (HIV, PSY, ...) the user may see in the clear.
type Claims struct {
	jwt.RegisteredClaims
	Name                 string   `json:"name,omitempty"`
	Roles                []string `json:"roles"`
	AuthorizedCategories []string `json:"authorized_categories,omitempty"`
	Permissions          []string `json:"permissions,omitempty"`
}

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	UserID               string
	Name                 string
	Roles                []string
	AuthorizedCategories []string
	Permissions          []string
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

// JWTMiddleware validates HS256 bearer tokens and stores the Principal on the
// request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), claims.Principal())))
			return next(c)
		}
	}
}

// ParseToken verifies a token and returns its claims.
func ParseToken(cfg JWTConfig, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// IssueToken signs a token for p. Used by the CLI to mint operator tokens
// and by tests.
func IssueToken(cfg JWTConfig, p Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = defaultIssuer
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:                 p.Name,
		Roles:                p.Roles,
		AuthorizedCategories: p.AuthorizedCategories,
		Permissions:          p.Permissions,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}

func (c *Claims) Principal() *Principal {
	return &Principal{
		UserID:               c.Subject,
		Name:                 c.Name,
		Roles:                c.Roles,
		AuthorizedCategories: c.AuthorizedCategories,
		Permissions:          c.Permissions,
	}
}

// DevAuthMiddleware is a permissive middleware for development that allows
// unauthenticated requests as an admin without sensitive-category grants.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if PrincipalFromContext(c.Request().Context()) == nil {
				p := &Principal{UserID: "dev-user", Name: "Developer", Roles: []string{"admin"}}
				c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
			}
			return next(c)
		}
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	ctx = context.WithValue(ctx, UserRolesKey, p.Roles)
	return ctx
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
