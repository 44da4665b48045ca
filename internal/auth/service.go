package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"registration-service/internal/apperror"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	authn  Authenticator
	tokens *Tokens
	logger *slog.Logger
}

func NewService(authn Authenticator, tokens *Tokens, logger *slog.Logger) *Service {
	return &Service{
		authn:  authn,
		tokens: tokens,
		logger: logger,
	}
}

// Login exchanges an admin credential for an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.authn.Authenticate(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.WarnContext(ctx, "admin login rejected", "username", req.Username)
			return nil, apperror.Wrap(err, apperror.CodeUnauthorized, "Invalid username or password")
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "Login failed")
	}

	token, expiresAt, err := s.tokens.Issue(req.Username)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "Failed to issue token")
	}

	s.logger.InfoContext(ctx, "admin logged in", "username", req.Username)
	return &LoginResponse{Token: token, ExpiresAt: expiresAt.UTC()}, nil
}
