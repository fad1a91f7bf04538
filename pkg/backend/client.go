// Package backend talks to the fleet backend that records tag sightings:
// login for a bearer token, create a tag, list tags.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teslashibe/motoscan/internal/httpc"
)

// Config describes the backend endpoints and credentials.
type Config struct {
	BaseURL    string
	LoginPath  string
	CreatePath string
	ListPath   string
	Email      string
	Password   string
	Timeout    time.Duration
}

// Tag is the backend's ArUco tag DTO.
type Tag struct {
	ID        int64  `json:"id,omitempty"`
	Code      string `json:"codigo"`
	Status    string `json:"status"`
	VehicleID int64  `json:"idMoto"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type loginResponse struct {
	AccessToken string `json:"tokenAcesso"`
}

// Client is an HTTP client for the backend API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a backend client using a shared-transport HTTP client
// with cfg.Timeout as the per-request timeout.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: httpc.NewClient(cfg.Timeout),
	}
}

// NewClientWithHTTP creates a backend client over a caller-supplied HTTP client.
func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	return &Client{cfg: cfg, http: hc}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Login exchanges the configured credentials for a bearer token.
func (c *Client) Login(ctx context.Context) (*oauth2.Token, error) {
	if c.cfg.Email == "" || c.cfg.Password == "" {
		return nil, ErrNoCredentials
	}

	body, status, err := c.doJSON(ctx, http.MethodPost, c.cfg.LoginPath, nil,
		loginRequest{Email: c.cfg.Email, Password: c.cfg.Password})
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, &APIError{Op: "login", StatusCode: status, Body: truncate(string(body), maxErrorBody)}
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, ErrNoToken
	}

	return &oauth2.Token{AccessToken: resp.AccessToken, TokenType: "Bearer"}, nil
}

// CreateTag submits a tag. Only 200 and 201 count as success; anything else
// is returned as an *APIError. tok may be nil to send the request anonymously.
func (c *Client) CreateTag(ctx context.Context, tok *oauth2.Token, tag Tag) error {
	body, status, err := c.doJSON(ctx, http.MethodPost, c.cfg.CreatePath, tok, tag)
	if err != nil {
		return fmt.Errorf("create tag request failed: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &APIError{Op: "create_tag", StatusCode: status, Body: truncate(string(body), maxErrorBody)}
	}
	return nil
}

// ListTags fetches all tags known to the backend.
func (c *Client) ListTags(ctx context.Context, tok *oauth2.Token) ([]Tag, error) {
	body, status, err := c.doJSON(ctx, http.MethodGet, c.cfg.ListPath, tok, nil)
	if err != nil {
		return nil, fmt.Errorf("list tags request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "list_tags", StatusCode: status, Body: truncate(string(body), maxErrorBody)}
	}

	var tags []Tag
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("decode tag list: %w", err)
	}
	return tags, nil
}

// doJSON performs a request with an optional JSON payload and returns the
// raw response body and status.
func (c *Client) doJSON(ctx context.Context, method, path string, tok *oauth2.Token, payload any) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
