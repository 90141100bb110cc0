package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/middleware"
	"github.com/todoapp/todo-api/internal/repository"
	"github.com/todoapp/todo-api/internal/utils"
)

// TokenRevoker denylists a token id until the token's natural expiry.  Nil
// means revocation storage is unavailable; signout then only clears the
// client's copy, which is the stateless-token baseline.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Revoker TokenRevoker
	Log     *zap.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, rev TokenRevoker, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Revoker: rev, Log: log}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authResp struct {
	User  userPart `json:"user"`
	Token string   `json:"token"`
}

// Signup creates an account and signs the user in immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email required"})
	}
	if msg := passwordPolicyError(req.Password); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		h.Log.Error("create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.respondWithToken(c, http.StatusCreated, u)
}

// Signin verifies credentials and returns a fresh token.  Unknown email and
// wrong password produce the identical status and body so accounts cannot
// be enumerated.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalidCredentials(c)
		}
		h.Log.Error("query user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return invalidCredentials(c)
	}
	return h.respondWithToken(c, http.StatusOK, u)
}

// Signout clears the auth cookie and, when revocation storage is available,
// denylists the presented token for its remaining lifetime.  The token is
// stateless, so without the denylist the old copy stays cryptographically
// valid until expiry; the cookie removal is all a pure-stateless setup can
// do.  Signout never fails from the client's point of view.
func (h *AuthHandler) Signout(c echo.Context) error {
	if h.Revoker != nil {
		if raw := middleware.TokenFromRequest(c); raw != "" {
			if claims, err := utils.VerifyAccessToken(h.Cfg.JWTSecret, raw); err == nil && claims.ID != "" {
				ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
				defer cancel()
				if err := h.Revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
					h.Log.Warn("revoke token failed", zap.Error(err))
				}
			}
		}
	}
	clearAuthCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "signed out successfully"})
}

// Me returns the authenticated user's profile (protected route).
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		h.Log.Error("load user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt})
}

// respondWithToken issues the access token, sets the httpOnly cookie and
// writes the auth response body.
func (h *AuthHandler) respondWithToken(c echo.Context, status int, u repository.User) error {
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.TokenTTLDays)
	if err != nil {
		h.Log.Error("issue token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	setAuthCookie(c, tok)
	return c.JSON(status, authResp{
		User:  userPart{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt},
		Token: tok.Token,
	})
}

// invalidCredentials is the single response for both unknown email and
// wrong password.
func invalidCredentials(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
}

// setAuthCookie stores the token in an httpOnly cookie so page scripts can
// never read it.  SameSite=None plus Secure lets the cross-origin frontend
// send it with credentials.
func setAuthCookie(c echo.Context, tok utils.AccessToken) {
	c.SetCookie(&http.Cookie{
		Name:     utils.AuthCookieName,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearAuthCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     utils.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// passwordPolicyError returns a human-readable message when the password
// fails the signup policy: at least 8 characters with an uppercase letter,
// a lowercase letter and a digit.
func passwordPolicyError(pw string) string {
	if len(pw) < 8 {
		return "password must be at least 8 characters"
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return "password must contain at least one uppercase letter"
	}
	if !lower {
		return "password must contain at least one lowercase letter"
	}
	if !digit {
		return "password must contain at least one number"
	}
	return ""
}
