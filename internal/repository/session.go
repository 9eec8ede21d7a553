package repository

import (
	"context"
	"fmt"
	"time"

	"rentdapp/internal/domain"
	"rentdapp/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Sessions wraps a session store with token expiry checks. It implements
// the backend token source.
type Sessions struct {
	store domain.SessionStore
	now   func() time.Time
}

func NewSessions(store domain.SessionStore) *Sessions {
	return &Sessions{store: store, now: time.Now}
}

func (s *Sessions) Save(ctx context.Context, sess models.Session) error {
	return s.store.Save(ctx, sess)
}

func (s *Sessions) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Restore returns the persisted session, or nil when there is none or its
// token has expired. An expired session is cleared.
func (s *Sessions) Restore(ctx context.Context) (*models.Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.Token == "" {
		return nil, nil
	}
	if TokenExpired(sess.Token, s.now()) {
		if err := s.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear expired session: %w", err)
		}
		return nil, nil
	}
	return sess, nil
}

// Token returns the bearer token of the current session, if any.
func (s *Sessions) Token(ctx context.Context) (string, error) {
	sess, err := s.store.Load(ctx)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.Token, nil
}

// TokenExpired reads the exp claim without verifying the signature, which
// only the backend can do. Tokens that are not JWTs never expire locally.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
