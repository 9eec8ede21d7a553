package effects

import (
	"context"

	"rentdapp/internal/domain"
	"rentdapp/internal/store"
)

type ProfileEffects struct {
	api domain.ProfileAPI
}

func NewProfileEffects(api domain.ProfileAPI) *ProfileEffects {
	return &ProfileEffects{api: api}
}

func (e *ProfileEffects) Job(a store.Action) (Job, bool) {
	switch a := a.(type) {
	case store.LoadProfile:
		return concurrent(func(ctx context.Context, emit func(store.Action)) {
			p, err := e.api.Get(ctx, a.UserID)
			if err != nil {
				emit(store.LoadProfileFailure{Failure: failure(err, "Unable to load the profile")})
				return
			}
			emit(store.LoadProfileSuccess{Profile: *p})
		})
	case store.AddLanguage:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			lang, err := e.api.AddLanguage(ctx, a.UserID, a.Request)
			if err != nil {
				emit(store.AddLanguageFailure{Failure: failure(err, "Unable to add the language")})
				return
			}
			emit(store.AddLanguageSuccess{Language: *lang})
		})
	case store.RemoveLanguage:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			if err := e.api.RemoveLanguage(ctx, a.UserID, a.LanguageID); err != nil {
				emit(store.RemoveLanguageFailure{Failure: failure(err, "Unable to remove the language")})
				return
			}
			emit(store.RemoveLanguageSuccess{LanguageID: a.LanguageID})
		})
	}
	return Job{}, false
}
