package backend

import (
	"context"
	"net/http"

	"rentdapp/internal/models"
)

const serviceUsers = "users"

// AuthService wraps the /users/auth endpoints.
type AuthService struct {
	c *Client
}

func NewAuthService(c *Client) *AuthService {
	return &AuthService{c: c}
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := s.c.send(ctx, serviceUsers, http.MethodPost, "/users/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := s.c.send(ctx, serviceUsers, http.MethodPost, "/users/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user owning the current bearer token.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := s.c.get(ctx, serviceUsers, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AuthService) RequestEmailVerification(ctx context.Context) error {
	return s.c.send(ctx, serviceUsers, http.MethodPost, "/users/auth/verify-email/request", struct{}{}, nil)
}

// ProfileService wraps the /users/{id} profile endpoints.
type ProfileService struct {
	c *Client
}

func NewProfileService(c *Client) *ProfileService {
	return &ProfileService{c: c}
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.UserProfile, error) {
	var out models.UserProfile
	if err := s.c.get(ctx, serviceUsers, idPath("/users/%s/profile", userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProfileService) AddLanguage(ctx context.Context, userID int64, req models.AddLanguageRequest) (*models.UserLanguage, error) {
	var out models.UserLanguage
	if err := s.c.send(ctx, serviceUsers, http.MethodPost, idPath("/users/%s/languages", userID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *ProfileService) RemoveLanguage(ctx context.Context, userID, languageID int64) error {
	return s.c.send(ctx, serviceUsers, http.MethodDelete, idPath("/users/%s/languages/%s", userID, languageID), nil, nil)
}
