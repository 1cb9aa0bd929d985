// Package session issues bearer tokens and tracks which of them are live.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "pizza-service/internal/common/errors"
	"pizza-service/internal/common/logger"
	"pizza-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the signed token payload. User is a copy of the public profile
// at issue time.
type Claims struct {
	User models.User `json:"user"`
	jwt.RegisteredClaims
}

// Registry signs tokens and checks them against the valid-session set.
type Registry struct {
	secret []byte
	issuer string
	ttl    time.Duration
	store  Store
	logger logger.Logger
	now    func() time.Time
}

// NewRegistry returns a registry. A zero ttl issues tokens without expiry.
func NewRegistry(store Store, secret, issuer string, ttl time.Duration, log logger.Logger) *Registry {
	return &Registry{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "session"}),
		now:    time.Now,
	}
}

// Issue signs a token for user and records it as valid.
func (r *Registry) Issue(ctx context.Context, user models.User) (string, error) {
	now := r.now()
	claims := &Claims{
		User: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   r.issuer,
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	sess := models.Session{UserID: user.ID, IssuedAt: now}
	if r.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(r.ttl))
		sess.ExpiresAt = claims.ExpiresAt.Time
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", apperrors.NewInternalError("sign session token", err)
	}

	sess.Token = token
	if err := r.store.Add(ctx, sess, r.ttl); err != nil {
		return "", apperrors.NewInternalError("store session", err)
	}
	return token, nil
}

// Verify checks the signature and expiry only.
func (r *Registry) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(r.now)}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewAuthenticationError("token expired")
		}
		return nil, apperrors.NewAuthenticationError("invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperrors.NewAuthenticationError("invalid token")
	}
	return claims, nil
}

// IsValid reports whether token verifies and is still in the valid set.
func (r *Registry) IsValid(ctx context.Context, token string) bool {
	_, err := r.Resolve(ctx, token)
	return err == nil
}

// Resolve returns the claims of a live token. Revoked or unknown tokens
// fail with an authentication error, never a crypto one.
func (r *Registry) Resolve(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, apperrors.NewAuthenticationError("missing token")
	}

	claims, err := r.Verify(token)
	if err != nil {
		return nil, err
	}

	live, err := r.store.Exists(ctx, token)
	if err != nil {
		r.logger.Error("Session lookup failed", map[string]interface{}{"error": err})
		return nil, apperrors.NewAuthenticationError("session lookup failed")
	}
	if !live {
		return nil, apperrors.NewAuthenticationError("session revoked")
	}
	return claims, nil
}

// Revoke removes token from the valid set. Unknown tokens are ignored.
func (r *Registry) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := r.store.Remove(ctx, token); err != nil {
		return apperrors.NewInternalError("revoke session", err)
	}
	return nil
}

// Prune drops expired sessions from the store.
func (r *Registry) Prune(ctx context.Context) (int64, error) {
	n, err := r.store.Prune(ctx, r.now())
	if err != nil {
		return 0, apperrors.NewInternalError("prune sessions", err)
	}
	return n, nil
}

// RunJanitor prunes expired sessions every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Prune(ctx)
			if err != nil {
				r.logger.Warn("Session prune failed", map[string]interface{}{"error": err})
				continue
			}
			if n > 0 {
				r.logger.Debug("Expired sessions pruned", map[string]interface{}{"count": n})
			}
		}
	}
}
