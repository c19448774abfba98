package groundwater

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/couchcryptid/groundwater-client/internal/adapter/api"
	"github.com/couchcryptid/groundwater-client/internal/domain"
	"github.com/couchcryptid/groundwater-client/internal/observability"
	"golang.org/x/oauth2"
)

// MinPasswordLength is the shortest password accepted by ResetPassword.
const MinPasswordLength = 6

var (
	// ErrInvalidResetToken is returned by ResetPassword for an empty token.
	ErrInvalidResetToken = errors.New("invalid reset link, request a new one")
	// ErrPasswordTooShort is returned by ResetPassword before any request is sent.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrInvalidVerificationToken is returned by VerifyEmail for an empty token.
	ErrInvalidVerificationToken = errors.New("invalid verification link")
)

// Login exchanges credentials for a token pair and saves it to the store.
func (s *Service) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	var pair domain.TokenPair
	err := s.client.PostJSON(ctx, "/api/auth/login", domain.LoginRequest{Email: email, Password: password}, &pair)
	if err != nil {
		return domain.TokenPair{}, describe(err, "login failed")
	}
	if pair.AccessToken == "" {
		return domain.TokenPair{}, errors.New("login failed: response carried no access token")
	}

	tok := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}
	if err := s.store.Save(tok); err != nil {
		return domain.TokenPair{}, fmt.Errorf("save credential: %w", err)
	}
	observability.WithInvocationID(ctx, s.logger).Info("logged in", "email", email)
	return pair, nil
}

// Register creates an account and then logs in with the same credentials.
// A failed automatic login does not fail the registration; loggedIn reports
// whether a credential was stored.
func (s *Service) Register(ctx context.Context, name, email, password string) (loggedIn bool, err error) {
	req := domain.RegisterRequest{Name: name, Email: email, Password: password}
	if err := s.client.PostJSON(ctx, "/api/auth/register", req, nil); err != nil {
		return false, describe(err, "registration failed")
	}

	if _, err := s.Login(ctx, email, password); err != nil {
		observability.WithInvocationID(ctx, s.logger).Warn("automatic login after registration failed", "email", email, "error", err)
		return false, nil
	}
	return true, nil
}

// ForgotPassword asks the server to email a reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) (domain.MessageResponse, error) {
	var resp domain.MessageResponse
	err := s.client.PostJSON(ctx, "/api/auth/forgot-password", domain.ForgotPasswordRequest{Email: email}, &resp)
	return resp, describe(err, "request failed")
}

// ResetPassword sets a new password using the token from a reset link.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (domain.MessageResponse, error) {
	if token == "" {
		return domain.MessageResponse{}, ErrInvalidResetToken
	}
	if len(newPassword) < MinPasswordLength {
		return domain.MessageResponse{}, ErrPasswordTooShort
	}

	var resp domain.MessageResponse
	req := domain.ResetPasswordRequest{Token: token, NewPassword: newPassword}
	err := s.client.PostJSON(ctx, "/api/auth/reset-password", req, &resp)
	return resp, describe(err, "reset failed")
}

// VerifyEmail confirms an address using the token from a verification link.
func (s *Service) VerifyEmail(ctx context.Context, token string) (domain.MessageResponse, error) {
	if token == "" {
		return domain.MessageResponse{}, ErrInvalidVerificationToken
	}

	var resp domain.MessageResponse
	path := withQuery("/api/auth/verify-email", map[string]string{"token": token})
	if err := s.client.GetJSON(ctx, path, &resp); err != nil {
		return domain.MessageResponse{}, describe(err, "verification failed")
	}
	if resp.Status != "ok" {
		detail := resp.Detail
		if detail == "" {
			detail = "verification failed"
		}
		return resp, &api.APIError{StatusCode: http.StatusOK, Status: http.StatusText(http.StatusOK), Detail: detail, FromBody: resp.Detail != ""}
	}
	return resp, nil
}

// Logout clears the stored credential. No request is sent.
func (s *Service) Logout() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
