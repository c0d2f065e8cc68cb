// Package client is the HTTP API client used by the terminal follower and the
// state store. Every call carries the session's bearer token; error bodies are
// decoded back into their machine-readable codes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mwilkes/basket/internal/model"
)

// APIError is a non-2xx answer from the server, carrying the machine-readable
// code from the response body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (%s, status %d)", e.Message, e.Code, e.Status)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the server base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, email, name, password string) (*Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "name": name, "password": password,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

// Collections is the full set of list collections the session sees.
type Collections struct {
	Active   []model.List `json:"active"`
	Archived []model.List `json:"archived"`
	Shared   []model.List `json:"shared"`
}

func (c *Client) Lists(ctx context.Context) (*Collections, error) {
	var out Collections
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDetail is a list together with its items.
type ListDetail struct {
	List  *model.List  `json:"list"`
	Items []model.Item `json:"items"`
}

func (c *Client) GetList(ctx context.Context, id int64) (*ListDetail, error) {
	var out ListDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/lists/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateList(ctx context.Context, name, description string) (*model.List, error) {
	var out model.List
	err := c.do(ctx, http.MethodPost, "/api/lists", map[string]string{
		"name": name, "description": description,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateList(ctx context.Context, id int64, name, description string) (*model.List, error) {
	var out model.List
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/lists/%d", id), map[string]string{
		"name": name, "description": description,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteList(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/lists/%d", id), nil, nil)
}

func (c *Client) ArchiveList(ctx context.Context, id int64) (*model.List, error) {
	var out model.List
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/lists/%d/archive", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteList(ctx context.Context, id int64) (*model.List, error) {
	var out model.List
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/lists/%d/complete", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ItemFields carries the writable item fields for create and update.
type ItemFields struct {
	Name         string   `json:"name"`
	Quantity     float64  `json:"quantity"`
	Unit         string   `json:"unit"`
	Category     string   `json:"category"`
	Notes        string   `json:"notes"`
	NotesPrivate bool     `json:"notes_private"`
	Store        string   `json:"store"`
	Brand        string   `json:"brand"`
	Price        *float64 `json:"price"`
	PricePerUnit bool     `json:"price_per_unit"`
	Priority     string   `json:"priority"`
}

func (c *Client) CreateItem(ctx context.Context, listID int64, fields ItemFields) (*model.Item, error) {
	var out model.Item
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", listID), fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateItem(ctx context.Context, listID, itemID int64, fields ItemFields) (*model.Item, error) {
	var out model.Item
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/lists/%d/items/%d", listID, itemID), fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteItem(ctx context.Context, listID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/lists/%d/items/%d", listID, itemID), nil, nil)
}

func (c *Client) ToggleItemPurchased(ctx context.Context, listID, itemID int64) (*model.Item, error) {
	var out model.Item
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/lists/%d/items/%d/purchase", listID, itemID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
