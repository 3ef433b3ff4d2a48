// Package client is the Go SDK for a Huddle server: an HTTP API client plus
// a durable session store. The actual audio and video transport belongs to
// the external provider; this package only deals in meeting records, session
// tokens, and provider credentials.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrUnauthenticated = errors.New("no active session")
	ErrNetwork         = errors.New("backend unreachable")
)

// APIError carries a backend-provided message alongside the HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (v *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", v.Status, v.Message)
}

type User struct {
	ID        uint      `json:"id"`
	Uuid      string    `json:"uuid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Meeting struct {
	ID               uint       `json:"id"`
	Uuid             string     `json:"uuid"`
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	CallID           string     `json:"call_id"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at"`
	Duration         int        `json:"duration"`
	ParticipantCount int        `json:"participant_count"`
	HostID           uint       `json:"host_id"`
	Host             User       `json:"host"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Config struct {
	BaseURL string

	// Storage persists the session across restarts. Defaults to an
	// in-memory store when absent.
	Storage Storage

	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
	storage Storage

	mu      sync.RWMutex
	state   SessionState
	session *Session
}

func New(cfg Config) *Client {
	storage := cfg.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		storage: storage,
		state:   SessionStateUnauthenticated,
	}
}

// request performs one call against the backend, attaching the bearer token
// of the active session when one exists. Transport failures surface as
// ErrNetwork, application failures as *APIError.
func (v *Client) request(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := jsoniter.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if session := v.Session(); session != nil {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	res, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if res.StatusCode >= 400 {
		apiErr := &APIError{Status: res.StatusCode, Message: string(raw)}
		var data struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jsoniter.Unmarshal(raw, &data) == nil {
			if len(data.Error) > 0 {
				apiErr.Message = data.Error
			} else if len(data.Message) > 0 {
				apiErr.Message = data.Message
			}
		}
		return apiErr
	}

	if out != nil && res.StatusCode != http.StatusNoContent && len(raw) > 0 {
		return jsoniter.Unmarshal(raw, out)
	}
	return nil
}

// GenerateToken mints a provider credential for userId via the credential
// endpoint.
func (v *Client) GenerateToken(ctx context.Context, userId string) (string, error) {
	var data struct {
		Token string `json:"token"`
	}
	if err := v.request(ctx, http.MethodPost, "/api/generate-token", map[string]string{
		"userId": userId,
	}, &data); err != nil {
		return "", err
	}
	return data.Token, nil
}
