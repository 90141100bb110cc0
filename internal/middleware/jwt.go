package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/utils"
)

// TokenDenylist reports whether a token id was revoked before its natural
// expiry.  A nil denylist disables the check (revocation storage offline).
type TokenDenylist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTAuth returns an Echo middleware that resolves a trusted identity from
// the access token or rejects the request.  The token is read from the
// Authorization header first and from the auth cookie as a fallback.  On
// success the user's id and email are stored in the request context under
// "user_id" (uint64) and "email"; handlers never parse tokens themselves.
//
// Every rejection carries the same generic body.  Which verification step
// failed (malformed, bad signature, expired, missing subject, revoked) is
// logged server-side only, so the response cannot be used as an oracle to
// probe the signature check.
func JWTAuth(secret string, denylist TokenDenylist, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := TokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			claims, err := utils.VerifyAccessToken(secret, raw)
			if err != nil {
				log.Debug("token rejected",
					zap.Error(err),
					zap.String("path", c.Request().URL.Path))
				return unauthenticated(c)
			}
			uid, err := claims.UserID()
			if err != nil {
				log.Debug("token rejected", zap.Error(err))
				return unauthenticated(c)
			}

			if denylist != nil && claims.ID != "" {
				revoked, err := denylist.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					// Denylist storage being down must not take auth down
					// with it; the token still carries a valid signature.
					log.Warn("denylist lookup failed", zap.Error(err))
				} else if revoked {
					log.Debug("token rejected", zap.String("reason", "revoked"), zap.String("jti", claims.ID))
					return unauthenticated(c)
				}
			}

			c.Set("user_id", uid)
			c.Set("email", claims.Email)
			return next(c)
		}
	}
}

// unauthenticated writes the single 401 body used for every authentication
// failure variant.
func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
}

// TokenFromRequest extracts the raw token, preferring the Authorization
// header over the auth cookie set at signin.
func TokenFromRequest(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if ck, err := c.Cookie(utils.AuthCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return ""
}
