package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/pkg/respond"
)

// Claims carries the caller identity in the token. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// JWTMiddleware authenticates requests with an HS256 bearer token and places
// the resulting Caller in the request context. Failures are rendered as the
// UNAUTHENTICATED envelope, never as a raw error.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"HS256"}),
			}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}

			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid subject claim")
			}

			role := Role(claims.Role)
			if role != RoleAdmin && role != RolePatient {
				return respond.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid role claim")
			}

			ctx := WithCaller(c.Request().Context(), Caller{UserID: userID, Role: role})
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevAuthMiddleware grants unauthenticated requests a fixed admin identity.
// Development only; Config.Validate refuses this path outside ENV=development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	devID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}
			if _, ok := CallerFromContext(c.Request().Context()); !ok {
				ctx := WithCaller(c.Request().Context(), Caller{UserID: devID, Role: RoleAdmin})
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
