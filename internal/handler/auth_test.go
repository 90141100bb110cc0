package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/todoapp/todo-api/internal/config"
	"github.com/todoapp/todo-api/internal/repository"
	"github.com/todoapp/todo-api/internal/utils"
)

const handlerSecret = "handler-test-secret"

type fakeRevoker struct {
	jti   string
	until time.Time
	err   error
}

func (f *fakeRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	f.jti, f.until = jti, until
	return f.err
}

func newAuthHandlerMock(t *testing.T, rev TokenRevoker) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Config{
		Env:          "test",
		JWTSecret:    handlerSecret,
		TokenTTLDays: 7,
		BcryptCost:   bcrypt.MinCost,
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), rev, zap.NewNop()), mock
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func authCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == utils.AuthCookieName {
			return ck
		}
	}
	return nil
}

const userInsertSQL = "INSERT INTO users (email, password_hash) VALUES ($1,$2) RETURNING id, created_at, updated_at"
const userByEmailSQL = "SELECT id,email,password_hash,created_at,updated_at FROM users WHERE email=$1 LIMIT 1"
const userByIDSQL = "SELECT id,email,password_hash,created_at,updated_at FROM users WHERE id=$1 LIMIT 1"

func TestSignup(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t, nil)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(userInsertSQL)).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))

	c, rec := newJSONContext(http.MethodPost, "/api/auth/signup",
		`{"email":" Alice@Example.com ","password":"Passw0rd1"}`)
	require.NoError(t, h.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		User  userPart `json:"user"`
		Token string   `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.User.ID)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	// The returned token must verify and carry the new user's identity.
	claims, err := utils.VerifyAccessToken(handlerSecret, resp.Token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), uid)
	assert.Equal(t, "alice@example.com", claims.Email)

	ck := authCookie(t, rec)
	require.NotNil(t, ck)
	assert.Equal(t, resp.Token, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing email", `{"password":"Passw0rd1"}`, "valid email required"},
		{"bad email", `{"email":"nope","password":"Passw0rd1"}`, "valid email required"},
		{"too short", `{"email":"a@b.com","password":"Sh0rt"}`, "at least 8 characters"},
		{"no uppercase", `{"email":"a@b.com","password":"passw0rd1"}`, "uppercase letter"},
		{"no lowercase", `{"email":"a@b.com","password":"PASSW0RD1"}`, "lowercase letter"},
		{"no digit", `{"email":"a@b.com","password":"Passwords"}`, "number"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// No query expectations: validation fails before any DB work.
			h, mock := newAuthHandlerMock(t, nil)
			c, rec := newJSONContext(http.MethodPost, "/api/auth/signup", tc.body)
			require.NoError(t, h.Signup(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(userInsertSQL)).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	c, rec := newJSONContext(http.MethodPost, "/api/auth/signup",
		`{"email":"alice@example.com","password":"Passw0rd1"}`)
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignin(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t, nil)

	hash, err := utils.HashPassword("Passw0rd1", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(userByEmailSQL)).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(3, "alice@example.com", hash, now, now))

	c, rec := newJSONContext(http.MethodPost, "/api/auth/signin",
		`{"email":"alice@example.com","password":"Passw0rd1"}`)
	require.NoError(t, h.Signin(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := utils.VerifyAccessToken(handlerSecret, resp.Token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), uid)

	require.NotNil(t, authCookie(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Unknown email and wrong password must be indistinguishable from outside:
// same status, same body.
func TestSigninDoesNotLeakWhichFieldWasWrong(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(userByEmailSQL)).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	c1, rec1 := newJSONContext(http.MethodPost, "/api/auth/signin",
		`{"email":"ghost@example.com","password":"Whatever1"}`)
	require.NoError(t, h.Signin(c1))

	hash, err := utils.HashPassword("RealPass1", bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(userByEmailSQL)).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(3, "alice@example.com", hash, now, now))

	c2, rec2 := newJSONContext(http.MethodPost, "/api/auth/signin",
		`{"email":"alice@example.com","password":"WrongPass1"}`)
	require.NoError(t, h.Signin(c2))

	assert.Equal(t, http.StatusUnauthorized, rec1.Code)
	assert.Equal(t, rec1.Code, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignoutRevokesPresentedToken(t *testing.T) {
	t.Parallel()
	rev := &fakeRevoker{}
	h, _ := newAuthHandlerMock(t, rev)

	tok, err := utils.NewAccessToken(handlerSecret, 5, "alice@example.com", 7)
	require.NoError(t, err)

	c, rec := newJSONContext(http.MethodPost, "/api/auth/signout", "")
	c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
	require.NoError(t, h.Signout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signed out successfully")
	assert.Equal(t, tok.ID, rev.jti)
	assert.WithinDuration(t, tok.Exp, rev.until, time.Second)

	ck := authCookie(t, rec)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Negative(t, ck.MaxAge)
}

func TestSignoutWithoutTokenStillSucceeds(t *testing.T) {
	t.Parallel()
	rev := &fakeRevoker{}
	h, _ := newAuthHandlerMock(t, rev)

	c, rec := newJSONContext(http.MethodPost, "/api/auth/signout", "")
	require.NoError(t, h.Signout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rev.jti)
	require.NotNil(t, authCookie(t, rec))
}

func TestMe(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t, nil)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(userByIDSQL)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(5, "alice@example.com", "$2a$04$hash", now, now))

	c, rec := newJSONContext(http.MethodGet, "/api/auth/me", "")
	c.Set("user_id", uint64(5))
	require.NoError(t, h.Me(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	// The hash must never appear in a response body.
	assert.NotContains(t, rec.Body.String(), "$2a$04$hash")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeUserGone(t *testing.T) {
	t.Parallel()
	h, mock := newAuthHandlerMock(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(userByIDSQL)).
		WithArgs(5).
		WillReturnError(sql.ErrNoRows)

	c, rec := newJSONContext(http.MethodGet, "/api/auth/me", "")
	c.Set("user_id", uint64(5))
	require.NoError(t, h.Me(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
