package cli

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/groundwater-client/internal/credential"
	"github.com/couchcryptid/groundwater-client/internal/groundwater"
)

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "email", "password"); err != nil {
		return err
	}

	pair, err := a.svc.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.print(map[string]any{
		"logged_in":   true,
		"email":       *email,
		"has_refresh": pair.RefreshToken != "",
	})
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "name", "email", "password"); err != nil {
		return err
	}

	loggedIn, err := a.svc.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	return a.print(map[string]any{"registered": true, "logged_in": loggedIn})
}

func runLogout(_ context.Context, a *app, args []string) error {
	if err := parse(a.flags("logout"), args); err != nil {
		return err
	}
	if err := a.svc.Logout(); err != nil {
		return err
	}
	return a.print(map[string]any{"logged_in": false})
}

type whoami struct {
	Authenticated bool `json:"authenticated"`
	Opaque        bool `json:"opaque,omitempty"`
	credential.Claims
	Expired bool `json:"expired,omitempty"`
}

func runWhoami(_ context.Context, a *app, args []string) error {
	if err := parse(a.flags("whoami"), args); err != nil {
		return err
	}

	access, err := credential.AccessToken(a.store)
	if err != nil {
		return err
	}
	if access == "" {
		return groundwater.ErrNoToken
	}

	claims, err := credential.Inspect(access)
	if errors.Is(err, credential.ErrOpaqueToken) {
		return a.print(whoami{Authenticated: true, Opaque: true})
	}
	if err != nil {
		return err
	}

	return a.print(whoami{
		Authenticated: true,
		Claims:        claims,
		Expired:       !claims.ExpiresAt.IsZero() && time.Now().After(claims.ExpiresAt),
	})
}

func runForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flags("forgot-password")
	email := fs.String("email", "", "account email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "email"); err != nil {
		return err
	}

	resp, err := a.svc.ForgotPassword(ctx, *email)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runResetPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flags("reset-password")
	token := fs.String("token", "", "token from the reset link")
	password := fs.String("password", "", "new password")
	if err := parse(fs, args); err != nil {
		return err
	}

	resp, err := a.svc.ResetPassword(ctx, *token, *password)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runVerifyEmail(ctx context.Context, a *app, args []string) error {
	fs := a.flags("verify-email")
	token := fs.String("token", "", "token from the verification link")
	if err := parse(fs, args); err != nil {
		return err
	}

	resp, err := a.svc.VerifyEmail(ctx, *token)
	if err != nil {
		return err
	}
	return a.print(resp)
}
