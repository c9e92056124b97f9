// Package synapse talks to the Matrix homeserver's admin API.
package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 15 * time.Second

var ErrNotConfigured = errors.New("synapse: admin API token not configured")

type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayname,omitempty"`
	Admin       bool   `json:"admin"`
	Deactivated bool   `json:"deactivated"`
	CreationTS  int64  `json:"creation_ts,omitempty"`
}

type NewUser struct {
	Username    string
	Password    string
	Admin       bool
	DisplayName string
}

type Client struct {
	baseURL    string
	token      string
	serverName string
	http       *http.Client
}

// NewClient creates an admin API client. baseURL points at the versioned
// admin prefix, e.g. http://synapse:8008/_synapse/admin/v1.
func NewClient(baseURL, token, serverName string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(token),
		serverName: serverName,
		http:       &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.token != "" && c.baseURL != ""
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var payload struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &payload); err != nil {
		return nil, fmt.Errorf("synapse: list users: %w", err)
	}
	if payload.Users == nil {
		return []User{}, nil
	}
	return payload.Users, nil
}

// CreateUser creates or updates @username:server.
func (c *Client) CreateUser(ctx context.Context, user NewUser) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if user.Username == "" || c.serverName == "" {
		return errors.New("synapse: username and server name are required")
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = user.Username
	}
	body := map[string]any{
		"password":    user.Password,
		"admin":       user.Admin,
		"displayname": displayName,
	}

	userID := fmt.Sprintf("@%s:%s", user.Username, c.serverName)
	if err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), body, nil); err != nil {
		return fmt.Errorf("synapse: create user %s: %w", userID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		msg := strings.TrimSpace(string(data))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
