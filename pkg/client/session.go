package client

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

type SessionState int

const (
	SessionStateUnauthenticated = SessionState(iota)
	SessionStateAuthenticating
	SessionStateAuthenticated
)

const (
	storageKeyToken = "auth_token"
	storageKeyUser  = "user"
)

// Session pairs the authenticated user with their bearer token.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (v *Client) State() SessionState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Session returns the active session, or nil when unauthenticated.
func (v *Client) Session() *Session {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.session
}

func (v *Client) setSession(session *Session) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = session
	if session != nil {
		v.state = SessionStateAuthenticated
	} else {
		v.state = SessionStateUnauthenticated
	}
}

func (v *Client) persistSession(session Session) error {
	rawUser, err := jsoniter.Marshal(session.User)
	if err != nil {
		return err
	}
	if err := v.storage.Write(storageKeyToken, session.Token); err != nil {
		return err
	}
	return v.storage.Write(storageKeyUser, string(rawUser))
}

// dropSession transitions to unauthenticated atomically: the in-memory
// session is discarded together with everything persisted.
func (v *Client) dropSession() error {
	v.setSession(nil)
	return v.storage.Clear()
}

type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Login authenticates against the backend and persists the session.
func (v *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	v.mu.Lock()
	v.state = SessionStateAuthenticating
	v.mu.Unlock()

	var data struct {
		AccessToken string `json:"access_token"`
		User        User   `json:"user"`
	}
	if err := v.request(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &data); err != nil {
		v.setSession(nil)
		return nil, err
	}

	session := Session{Token: data.AccessToken, User: data.User}
	if err := v.persistSession(session); err != nil {
		v.setSession(nil)
		return nil, err
	}

	v.setSession(&session)
	return &session, nil
}

// Register creates an account, then logs in with the same credentials.
func (v *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var user User
	if err := v.request(ctx, http.MethodPost, "/users", req, &user); err != nil {
		return nil, err
	}
	return v.Login(ctx, req.Email, req.Password)
}

// Profile verifies the active session against the backend.
func (v *Client) Profile(ctx context.Context) (*User, error) {
	if v.Session() == nil {
		return nil, ErrUnauthenticated
	}
	var user User
	if err := v.request(ctx, http.MethodPost, "/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RestoreSession rehydrates a persisted session and verifies the token
// against the backend. A rejected token clears persisted state and yields no
// session, so a dead credential never masquerades as a login. Transport
// failures keep the persisted state and surface as an error instead.
func (v *Client) RestoreSession(ctx context.Context) (*Session, error) {
	token, err := v.storage.Read(storageKeyToken)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rawUser, err := v.storage.Read(storageKeyUser)
	if err != nil {
		// Half-written state is as good as none.
		_ = v.dropSession()
		return nil, nil
	}

	var user User
	if err := jsoniter.Unmarshal([]byte(rawUser), &user); err != nil {
		_ = v.dropSession()
		return nil, nil
	}

	session := Session{Token: token, User: user}
	v.setSession(&session)

	fresh, err := v.Profile(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) &&
			(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			// The backend rejected the token; forget it.
			_ = v.dropSession()
			return nil, nil
		}
		// Transient failure: keep the persisted state, report the error.
		v.setSession(nil)
		return nil, err
	}

	session.User = *fresh
	v.setSession(&session)
	_ = v.persistSession(session)
	return &session, nil
}

// Logout clears local state unconditionally; the remote invalidation is
// best-effort and its failure is ignored.
func (v *Client) Logout(ctx context.Context) error {
	if v.Session() != nil {
		_ = v.request(ctx, http.MethodPost, "/auth/logout", nil, nil)
	}
	return v.dropSession()
}
