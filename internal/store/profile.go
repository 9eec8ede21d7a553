package store

import "rentdapp/internal/models"

type ProfileState struct {
	Profile *models.UserProfile `json:"profile,omitempty"`
	Loading bool                `json:"loading"`
	Error   string              `json:"error,omitempty"`
}

func initialProfileState() ProfileState { return ProfileState{} }

type LoadProfile struct {
	UserID int64 `json:"userId"`
}

type LoadProfileSuccess struct {
	Profile models.UserProfile `json:"profile"`
}

type LoadProfileFailure struct{ Failure }

type AddLanguage struct {
	UserID  int64                     `json:"userId"`
	Request models.AddLanguageRequest `json:"request"`
}

type AddLanguageSuccess struct {
	Language models.UserLanguage `json:"language"`
}

type AddLanguageFailure struct{ Failure }

type RemoveLanguage struct {
	UserID     int64 `json:"userId"`
	LanguageID int64 `json:"languageId"`
}

type RemoveLanguageSuccess struct {
	LanguageID int64 `json:"languageId"`
}

type RemoveLanguageFailure struct{ Failure }

type ClearProfileError struct{}

func (LoadProfile) Type() string           { return "[Profile] Load Profile" }
func (LoadProfileSuccess) Type() string    { return "[Profile] Load Profile Success" }
func (LoadProfileFailure) Type() string    { return "[Profile] Load Profile Failure" }
func (AddLanguage) Type() string           { return "[Profile] Add Language" }
func (AddLanguageSuccess) Type() string    { return "[Profile] Add Language Success" }
func (AddLanguageFailure) Type() string    { return "[Profile] Add Language Failure" }
func (RemoveLanguage) Type() string        { return "[Profile] Remove Language" }
func (RemoveLanguageSuccess) Type() string { return "[Profile] Remove Language Success" }
func (RemoveLanguageFailure) Type() string { return "[Profile] Remove Language Failure" }
func (ClearProfileError) Type() string     { return "[Profile] Clear Error" }

func reduceProfile(s ProfileState, a Action) ProfileState {
	switch a := a.(type) {
	case LoadProfile, AddLanguage, RemoveLanguage:
		s.Loading = true
		s.Error = ""
	case LoadProfileSuccess:
		p := a.Profile
		p.Languages = append([]models.UserLanguage(nil), a.Profile.Languages...)
		s.Profile = &p
		s.Loading = false
	case AddLanguageSuccess:
		if s.Profile != nil {
			p := *s.Profile
			langs := make([]models.UserLanguage, 0, len(p.Languages)+1)
			langs = append(langs, p.Languages...)
			p.Languages = append(langs, a.Language)
			s.Profile = &p
		}
		s.Loading = false
	case RemoveLanguageSuccess:
		if s.Profile != nil {
			p := *s.Profile
			langs := make([]models.UserLanguage, 0, len(p.Languages))
			for _, l := range p.Languages {
				if l.ID != a.LanguageID {
					langs = append(langs, l)
				}
			}
			p.Languages = langs
			s.Profile = &p
		}
		s.Loading = false
	case LoadProfileFailure, AddLanguageFailure, RemoveLanguageFailure:
		s.Loading = false
		s.Error = a.(Failed).FailureMessage()
	case ClearProfileError:
		s.Error = ""
	case Logout:
		return initialProfileState()
	}
	return s
}
