package api

import (
	"context"
	"net/http"
	"strings"

	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
)

// Login posts credentials and, on success, establishes the session and
// starts its heartbeat. A rejected login returns a CodeUnauthorized error
// carrying the server's message and leaves the session untouched.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "email and password are required")
	}

	var resp LoginResponse
	err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/auth/login",
		route:       "/auth/login",
		body:        LoginRequest{Email: email, Password: password},
		out:         &resp,
		keepSession: true,
	})
	if err != nil {
		if status := dErrors.StatusOf(err); status >= 400 && status < 500 {
			var de *dErrors.Error
			msg := "invalid email or password"
			if dErrors.As(err, &de) && de.Message != "" && de.Message != http.StatusText(status) {
				msg = de.Message
			}
			return nil, dErrors.New(dErrors.CodeUnauthorized, msg).WithStatus(status)
		}
		return nil, err
	}

	token := resp.bearer()
	if token == "" || resp.User.ID == "" {
		return nil, dErrors.New(dErrors.CodeAPI, "login response missing token or user")
	}
	if err := c.sess.Establish(ctx, token, resp.User); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "logged in", "user_id", resp.User.ID)
	return &LoginResult{Token: token, User: resp.User}, nil
}

// Logout notifies the server best-effort and then always clears the local
// session. Server failures are logged and never returned.
func (c *Client) Logout(ctx context.Context) error {
	if c.sess.State() == session.StateAuthenticated {
		err := c.do(ctx, call{
			method:      http.MethodPost,
			path:        "/auth/logout",
			route:       "/auth/logout",
			auth:        true,
			keepSession: true,
		})
		if err != nil {
			c.logger.WarnContext(ctx, "server logout failed; clearing local session anyway", "error", err)
		}
	}
	c.sess.Clear(ctx)
	return nil
}

// Me fetches the current profile. Servers answer either with the profile
// itself or wrapped as {"user": {...}}.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var resp struct {
		Wrapped *session.User `json:"user"`
		session.User
	}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", route: "/auth/me", out: &resp, auth: true}); err != nil {
		return nil, err
	}
	if resp.Wrapped != nil {
		return resp.Wrapped, nil
	}
	return &resp.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	if next == "" {
		return dErrors.New(dErrors.CodeValidation, "new password is required")
	}
	if current == next {
		return dErrors.New(dErrors.CodeValidation, "new password must differ from the current one")
	}
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/auth/change-password",
		route:  "/auth/change-password",
		body:   ChangePasswordRequest{CurrentPassword: current, NewPassword: next},
		auth:   true,
	})
}

// SendHeartbeat posts one activity heartbeat. It is registered as the
// session's heartbeat function by New.
func (c *Client) SendHeartbeat(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/activity/heartbeat",
		route:  "/activity/heartbeat",
		auth:   true,
	})
}
