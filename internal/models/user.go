package models

// User is the account returned by the user service.
type User struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Role          string `json:"role,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// DisplayName prefers the full name and falls back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

// AuthResponse carries the bearer token issued on login or registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// UserLanguage is one spoken language listed on a profile.
type UserLanguage struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Proficiency string `json:"proficiency,omitempty"`
}

// UserProfile is the public profile of a user.
type UserProfile struct {
	UserID     int64          `json:"userId"`
	FirstName  string         `json:"firstName,omitempty"`
	LastName   string         `json:"lastName,omitempty"`
	Bio        string         `json:"bio,omitempty"`
	AvatarURL  string         `json:"avatarUrl,omitempty"`
	Work       string         `json:"work,omitempty"`
	Location   string         `json:"location,omitempty"`
	Languages  []UserLanguage `json:"languages,omitempty"`
	IsVerified bool           `json:"isVerified"`
}

type AddLanguageRequest struct {
	Name        string `json:"name" validate:"required"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Session is the persisted login: bearer token plus the cached current user.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}
