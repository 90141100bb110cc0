package utils // package utils provides helper functions for token issuing and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
	"github.com/google/uuid"       // uuid generates the token id used for revocation
)

// Issuer identifies tokens minted by this backend.
const Issuer = "todo-app-backend"

// AuthCookieName is the httpOnly cookie the token travels in when the
// Authorization header is absent.  Shared by the handlers that set it and
// the middleware that reads it.
const AuthCookieName = "auth-token"

// Verification failures.  Clients only ever see a single generic 401; these
// sentinels exist so the gate can log which check failed.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenNoSubject = errors.New("token subject missing")
)

// AccessClaims is the fixed claim set carried by every access token: the
// registered subject (user id in decimal form), expiry, issued-at, issuer
// and token id, plus the user's email.  Anything else in a presented token
// is ignored; a missing subject or expiry is rejected.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// UserID parses the subject claim into a user id.
func (c *AccessClaims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenNoSubject
	}
	return id, nil
}

// AccessToken represents a signed JWT access token along with its id and
// expiry.  The Token field contains the serialized JWT string; ID is the
// jti claim used by the revocation denylist.
type AccessToken struct {
	Token string
	ID    string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user's id and email, and a TTL in days.  Issuing is
// stateless: no session record is written anywhere.
func NewAccessToken(secret string, userID uint64, email string, ttlDays int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	jti := uuid.NewString()

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ID:        jti,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, ID: jti, Exp: exp}, nil
}

// VerifyAccessToken checks structure, signature and expiry, in that order,
// and returns the token's claims.  Only HS256 is accepted: a token whose
// header declares any other algorithm fails before its claims are trusted,
// and the expiry claim is required rather than optional.  The function is
// pure — no I/O, no state.
func VerifyAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrTokenSignature
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenMalformed
	}
	if !tok.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" {
		return nil, ErrTokenNoSubject
	}
	return claims, nil
}
