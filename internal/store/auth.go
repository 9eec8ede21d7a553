package store

import "rentdapp/internal/models"

type AuthState struct {
	Token   string       `json:"-"`
	User    *models.User `json:"user,omitempty"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
}

func initialAuthState() AuthState { return AuthState{} }

type Login struct {
	Request models.LoginRequest `json:"-"`
}

type LoginSuccess struct {
	Response models.AuthResponse `json:"-"`
}

type LoginFailure struct{ Failure }

type Register struct {
	Request models.RegisterRequest `json:"-"`
}

type RegisterSuccess struct {
	Response models.AuthResponse `json:"-"`
}

type RegisterFailure struct{ Failure }

type LoadCurrentUser struct{}

type LoadCurrentUserSuccess struct {
	User models.User `json:"user"`
}

type LoadCurrentUserFailure struct{ Failure }

type RequestEmailVerification struct{}

type RequestEmailVerificationSuccess struct {
	Message string `json:"message"`
}

type RequestEmailVerificationFailure struct{ Failure }

type Logout struct{}

// RestoreSession seeds auth from a persisted session.
type RestoreSession struct {
	Token string       `json:"-"`
	User  *models.User `json:"user,omitempty"`
}

type ClearAuthError struct{}

func (Login) Type() string                    { return "[Auth] Login" }
func (LoginSuccess) Type() string             { return "[Auth] Login Success" }
func (LoginFailure) Type() string             { return "[Auth] Login Failure" }
func (Register) Type() string                 { return "[Auth] Register" }
func (RegisterSuccess) Type() string          { return "[Auth] Register Success" }
func (RegisterFailure) Type() string          { return "[Auth] Register Failure" }
func (LoadCurrentUser) Type() string          { return "[Auth] Load Current User" }
func (LoadCurrentUserSuccess) Type() string   { return "[Auth] Load Current User Success" }
func (LoadCurrentUserFailure) Type() string   { return "[Auth] Load Current User Failure" }
func (RequestEmailVerification) Type() string { return "[Auth] Request Email Verification" }
func (RequestEmailVerificationSuccess) Type() string {
	return "[Auth] Request Email Verification Success"
}
func (RequestEmailVerificationFailure) Type() string {
	return "[Auth] Request Email Verification Failure"
}
func (Logout) Type() string         { return "[Auth] Logout" }
func (RestoreSession) Type() string { return "[Auth] Restore Session" }
func (ClearAuthError) Type() string { return "[Auth] Clear Error" }

func reduceAuth(s AuthState, a Action) AuthState {
	switch a := a.(type) {
	case Login, Register, LoadCurrentUser, RequestEmailVerification:
		s.Loading = true
		s.Error = ""
		s.Message = ""
	case LoginSuccess:
		s = authenticated(s, a.Response)
	case RegisterSuccess:
		s = authenticated(s, a.Response)
	case LoadCurrentUserSuccess:
		u := a.User
		s.User = &u
		s.Loading = false
	case RequestEmailVerificationSuccess:
		s.Loading = false
		s.Message = a.Message
	case LoginFailure:
		s = authFailed(s, a.Error)
	case RegisterFailure:
		s = authFailed(s, a.Error)
	case LoadCurrentUserFailure:
		s = authFailed(s, a.Error)
	case RequestEmailVerificationFailure:
		s = authFailed(s, a.Error)
	case Logout:
		return initialAuthState()
	case RestoreSession:
		s.Token = a.Token
		s.User = a.User
	case ClearAuthError:
		s.Error = ""
	}
	return s
}

func authenticated(s AuthState, resp models.AuthResponse) AuthState {
	s.Token = resp.Token
	if resp.User != nil {
		u := *resp.User
		s.User = &u
	}
	s.Loading = false
	s.Error = ""
	return s
}

func authFailed(s AuthState, msg string) AuthState {
	s.Loading = false
	s.Error = msg
	return s
}

func SelectIsAuthenticated(s State) bool { return s.Auth.Token != "" }

func SelectCurrentUser(s State) *models.User { return s.Auth.User }

func SelectAuthError(s State) string { return s.Auth.Error }
