package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedTokenRepo keeps the jti values of tokens revoked before their
// natural expiry.  Tokens are stateless, so without this denylist a signed
// token stays valid until its exp claim; an entry here blocks it early and
// lives exactly as long as the token it blocks would have.
type RevokedTokenRepo struct{ RDB *redis.Client }

func NewRevokedTokenRepo(rdb *redis.Client) *RevokedTokenRepo {
	return &RevokedTokenRepo{RDB: rdb}
}

func revokedKey(jti string) string { return "revoked:" + jti }

// Revoke denylists a token id until the given expiry.  Already-expired
// tokens need no entry.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.RDB.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether a token id is on the denylist.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.RDB.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
