package supabase

// Package supabase talks to the managed auth/storage platform over its REST
// APIs. Sign-in uses the anon key; account provisioning and storage signing
// use the service role key, which must never leave this process.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/telewell/miniapp-api/config"
	"github.com/telewell/miniapp-api/internal/ports"
)

// APIError is a non-2xx platform response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int { return e.Status }

// AuthClient implements ports.AuthPlatform against the GoTrue auth API.
type AuthClient struct {
	httpClient     *http.Client
	baseURL        string
	anonKey        string
	serviceRoleKey string
}

var _ ports.AuthPlatform = (*AuthClient)(nil)

// NewAuthClient creates an auth client from config.
func NewAuthClient(cfg config.SupabaseConfig) *AuthClient {
	return &AuthClient{
		httpClient:     &http.Client{},
		baseURL:        cfg.BaseURL(),
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

// SignIn exchanges credentials for a session via the password grant.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (ports.PlatformSession, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return ports.PlatformSession{}, fmt.Errorf("marshal sign-in request: %w", err)
	}

	resp, err := c.do(ctx, "/auth/v1/token?grant_type=password", c.anonKey, body)
	if err != nil {
		return ports.PlatformSession{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return ports.PlatformSession{}, err
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.PlatformSession{}, fmt.Errorf("decode sign-in response: %w", err)
	}
	if parsed.AccessToken == "" || parsed.User.ID == "" {
		return ports.PlatformSession{}, fmt.Errorf("sign-in response missing token or user id")
	}
	return ports.PlatformSession{AccessToken: parsed.AccessToken, UserID: parsed.User.ID}, nil
}

// CreateUser provisions a confirmed account through the admin API. Email
// confirmation is forced so the derived credentials work immediately.
func (c *AuthClient) CreateUser(ctx context.Context, in ports.CreateUserInput) error {
	payload := map[string]any{
		"email":         in.Email,
		"password":      in.Password,
		"email_confirm": true,
	}
	if len(in.Metadata) > 0 {
		payload["user_metadata"] = in.Metadata
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal create-user request: %w", err)
	}

	resp, err := c.do(ctx, "/auth/v1/admin/users", c.serviceRoleKey, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// IsAlreadyRegistered reports whether err is the platform's "account already
// exists" failure. The API signals this in the message body, not a dedicated
// status, so matching stays isolated here.
func (c *AuthClient) IsAlreadyRegistered(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already registered") ||
		strings.Contains(msg, "already been registered") ||
		strings.Contains(msg, "email_exists")
}

func (c *AuthClient) do(ctx context.Context, path, key string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	return resp, nil
}

type apiErrorBody struct {
	Message  string `json:"message"`
	Msg      string `json:"msg"`
	ErrorMsg string `json:"error_description"`
	Code     string `json:"error_code"`
}

// checkStatus turns a non-2xx response into an APIError, pulling the message
// out of whichever field this endpoint family uses.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	message := strings.TrimSpace(string(raw))
	var parsed apiErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			message = parsed.Message
		case parsed.Msg != "":
			message = parsed.Msg
		case parsed.ErrorMsg != "":
			message = parsed.ErrorMsg
		}
		if parsed.Code != "" {
			message = parsed.Code + ": " + message
		}
	}
	return &APIError{Status: resp.StatusCode, Message: message}
}
