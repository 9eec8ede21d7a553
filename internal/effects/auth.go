package effects

import (
	"context"

	"rentdapp/internal/backend"
	"rentdapp/internal/domain"
	"rentdapp/internal/models"
	"rentdapp/internal/store"

	"github.com/rs/zerolog"
)

// SessionKeeper persists the login across restarts.
type SessionKeeper interface {
	Save(ctx context.Context, s models.Session) error
	Restore(ctx context.Context) (*models.Session, error)
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type AuthEffects struct {
	api      domain.AuthAPI
	sessions SessionKeeper
	logger   *zerolog.Logger
}

func NewAuthEffects(api domain.AuthAPI, sessions SessionKeeper, logger *zerolog.Logger) *AuthEffects {
	return &AuthEffects{api: api, sessions: sessions, logger: logger}
}

// Restore returns the action seeding auth from the persisted session.
func (e *AuthEffects) Restore(ctx context.Context) (store.Action, bool) {
	sess, err := e.sessions.Restore(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("session not restored")
		return nil, false
	}
	if sess == nil {
		return nil, false
	}
	return store.RestoreSession{Token: sess.Token, User: sess.User}, true
}

func (e *AuthEffects) Job(a store.Action) (Job, bool) {
	switch a := a.(type) {
	case store.Login:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			resp, err := e.api.Login(ctx, a.Request)
			if err != nil {
				emit(store.LoginFailure{Failure: failure(err, "Login failed")})
				return
			}
			e.persist(ctx, *resp)
			emit(store.LoginSuccess{Response: *resp})
		})
	case store.Register:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			resp, err := e.api.Register(ctx, a.Request)
			if err != nil {
				emit(store.RegisterFailure{Failure: failure(err, "Registration failed")})
				return
			}
			e.persist(ctx, *resp)
			emit(store.RegisterSuccess{Response: *resp})
		})
	case store.LoadCurrentUser:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			user, err := e.api.Me(ctx)
			if err != nil {
				emit(store.LoadCurrentUserFailure{Failure: failure(err, "Unable to load the current user")})
				return
			}
			if token, err := e.sessions.Token(ctx); err == nil && token != "" {
				e.persist(ctx, models.AuthResponse{Token: token, User: user})
			}
			emit(store.LoadCurrentUserSuccess{User: *user})
		})
	case store.RequestEmailVerification:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			if err := e.api.RequestEmailVerification(ctx); err != nil {
				emit(store.RequestEmailVerificationFailure{Failure: failure(err, "Unable to send the verification email")})
				return
			}
			emit(store.RequestEmailVerificationSuccess{Message: "Verification email sent"})
		})
	case store.Logout:
		return concurrent(func(ctx context.Context, _ func(store.Action)) {
			if err := e.sessions.Clear(ctx); err != nil {
				e.logger.Warn().Err(err).Msg("session not cleared")
			}
		})
	}
	return Job{}, false
}

func (e *AuthEffects) persist(ctx context.Context, resp models.AuthResponse) {
	if err := e.sessions.Save(ctx, models.Session{Token: resp.Token, User: resp.User}); err != nil {
		e.logger.Warn().Err(err).Msg("session not persisted")
	}
}

func failure(err error, fallback string) store.Failure {
	return store.Failure{Error: backend.Message(err, fallback)}
}
