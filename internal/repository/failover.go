package repository

import (
	"context"
	"sync/atomic"
	"time"

	"rentdapp/internal/domain"
	"rentdapp/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository serves from primary until it errors, then from
// fallback, retrying primary once per recoveryInterval.
type FailoverSessionRepository struct {
	primary   domain.SessionStore
	fallback  domain.SessionStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionStore, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverSessionRepository) Save(ctx context.Context, s models.Session) error {
	if r.usePrimary() {
		err := r.primary.Save(ctx, s)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Save(ctx, s)
}

func (r *FailoverSessionRepository) Load(ctx context.Context) (*models.Session, error) {
	if r.usePrimary() {
		s, err := r.primary.Load(ctx)
		if err == nil {
			r.recovered()
			return s, nil
		}
		r.markDown(err)
	}
	return r.fallback.Load(ctx)
}

func (r *FailoverSessionRepository) Clear(ctx context.Context) error {
	// The fallback may hold a session written while primary was down.
	_ = r.fallback.Clear(ctx)
	if r.usePrimary() {
		err := r.primary.Clear(ctx)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverSessionRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverSessionRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverSessionRepository) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary session repository recovered")
	}
}
