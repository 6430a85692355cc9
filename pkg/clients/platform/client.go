// Package platform talks to the hosted backend's auth endpoints: resolving the
// user behind an access token and the admin-only invite/delete calls.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/farmops/internal/config"
)

// ErrUnauthorized is returned when the backend rejects an access token.
var ErrUnauthorized = errors.New("invalid or expired access token")

// ErrAdminDisabled is returned by admin calls when no service-role key is configured.
var ErrAdminDisabled = errors.New("admin operations require SUPABASE_SERVICE_ROLE_KEY")

// User is the identity the auth service returns.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client exposes the auth operations used by the application.
type Client interface {
	GetUser(ctx context.Context, accessToken string) (*User, error)
	InviteUserByEmail(ctx context.Context, email string, metadata map[string]any) (*User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient     *resty.Client
	anonKey        string
	serviceRoleKey string
}

// NewClient builds a platform client from the configured project URL and keys.
func NewClient(cfg config.PlatformConfig) *APIClient {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")+"/auth/v1").
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:     restyClient,
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
	}
}

// apiError covers the error shapes the auth service returns.
type apiError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (e *apiError) text(resp *resty.Response) string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return strings.TrimSpace(resp.String())
}

// GetUser resolves the user an access token belongs to.
func (c *APIClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	result := new(User)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("apikey", c.anonKey).
		SetAuthToken(accessToken).
		SetResult(result).
		SetError(apiErr).
		Get("/user")
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.IsError():
		return nil, fmt.Errorf("auth api error: code=%d, message=%s", resp.StatusCode(), apiErr.text(resp))
	case result.ID == "":
		return nil, ErrUnauthorized
	}

	return result, nil
}

// InviteUserByEmail sends the platform's invitation email and returns the created user.
func (c *APIClient) InviteUserByEmail(ctx context.Context, email string, metadata map[string]any) (*User, error) {
	if c.serviceRoleKey == "" {
		return nil, ErrAdminDisabled
	}

	result := new(User)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("apikey", c.serviceRoleKey).
		SetAuthToken(c.serviceRoleKey).
		SetBody(map[string]any{"email": email, "data": metadata}).
		SetResult(result).
		SetError(apiErr).
		Post("/invite")
	if err != nil {
		return nil, fmt.Errorf("invite user: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("invite user: %s", apiErr.text(resp))
	}

	return result, nil
}

// DeleteUser removes an auth user.
func (c *APIClient) DeleteUser(ctx context.Context, userID string) error {
	if c.serviceRoleKey == "" {
		return ErrAdminDisabled
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("apikey", c.serviceRoleKey).
		SetAuthToken(c.serviceRoleKey).
		SetError(apiErr).
		Delete("/admin/users/" + userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete user: %s", apiErr.text(resp))
	}

	return nil
}
