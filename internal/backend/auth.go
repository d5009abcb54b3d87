package backend

import (
	"context"
	"net/url"

	"office-action-orchestrator/internal/domain"
)

type LoginResult struct {
	Token string      `json:"token" validate:"required"`
	User  domain.User `json:"user"`
}

func (c *HTTPClient) Register(ctx context.Context, reg domain.Registration) error {
	return c.postJSON(ctx, "/auth/register", false, reg, nil)
}

func (c *HTTPClient) Login(ctx context.Context, creds domain.Credentials) (LoginResult, error) {
	var out LoginResult
	if err := c.postJSON(ctx, "/auth/login", false, creds, &out); err != nil {
		return LoginResult{}, err
	}
	if err := domain.ValidatePayload("login", out); err != nil {
		return LoginResult{}, err
	}
	return out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.postJSON(ctx, "/auth/logout", true, tokenBody{Token: token}, nil)
}

func (c *HTTPClient) VerifyResetToken(ctx context.Context, resetToken string) error {
	return c.getJSON(ctx, "/auth/verify-reset-token/"+url.PathEscape(resetToken), "/auth/verify-reset-token", false, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, reset domain.PasswordReset) error {
	return c.postJSON(ctx, "/auth/resetpassword", false, reset, nil)
}
