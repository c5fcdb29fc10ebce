// Package tileclient is a Go client for the tile API that keeps a local
// save-state cache in step with what the server returns.
package tileclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Tile is a tile as returned by the listing endpoints.
type Tile struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	ImageURL    string       `json:"imageUrl"`
	AuthorID    uint         `json:"authorId"`
	Credits     []TileCredit `json:"credits"`
	CreatedAt   time.Time    `json:"createdAt"`
	IsSaved     bool         `json:"isSaved"`
}

type TileCredit struct {
	SupplierID uint   `json:"supplierId"`
	Service    string `json:"service,omitempty"`
}

// SaveState is one viewer's save state for one tile.
type SaveState struct {
	TileID  string `json:"tileId"`
	UserID  uint   `json:"userId"`
	IsSaved bool   `json:"isSaved"`
}

type tileListResponse struct {
	Data struct {
		Tiles []Tile `json:"tiles"`
	} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Config holds client configuration.
type Config struct {
	BaseURL string // e.g. http://localhost:8080/api/v1
	Token   string // bearer token, empty for anonymous
	// ViewerID is the signed-in user the token belongs to; 0 is anonymous.
	ViewerID   uint
	Timeout    time.Duration
	HTTPClient *http.Client
	Cache      *SaveStateCache
}

// Client talks to the API on behalf of one viewer.
type Client struct {
	baseURL    string
	token      string
	viewerID   uint
	httpClient *http.Client
	cache      *SaveStateCache
}

func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewSaveStateCache()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		viewerID:   cfg.ViewerID,
		httpClient: httpClient,
		cache:      cache,
	}
}

func (c *Client) Cache() *SaveStateCache { return c.cache }

func (c *Client) ViewerID() uint { return c.viewerID }

// Feed fetches a page of the newest tiles and seeds the cache.
func (c *Client) Feed(ctx context.Context, page, limit int) ([]Tile, error) {
	q := c.listQuery(page)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.listTiles(ctx, "/tiles", q)
}

// ListSupplierTiles fetches tiles crediting a supplier and seeds the cache.
// Cancel ctx to abandon a fetch superseded by a newer one.
func (c *Client) ListSupplierTiles(ctx context.Context, supplierID uint, page int) ([]Tile, error) {
	return c.listTiles(ctx, fmt.Sprintf("/suppliers/%d/tiles", supplierID), c.listQuery(page))
}

// ListUserTiles fetches the tiles a user saved and seeds the cache.
func (c *Client) ListUserTiles(ctx context.Context, userID uint, page int) ([]Tile, error) {
	return c.listTiles(ctx, fmt.Sprintf("/users/%d/tiles", userID), c.listQuery(page))
}

// GetSaveState fetches the viewer's state for one tile and caches it.
func (c *Client) GetSaveState(ctx context.Context, tileID string) (*SaveState, error) {
	if c.viewerID == 0 {
		return nil, ErrAnonymous
	}
	var state SaveState
	if err := c.do(ctx, http.MethodGet, c.saveStatePath(tileID), nil, nil, &state); err != nil {
		return nil, err
	}
	c.cache.Set(Key{TileID: tileID, ViewerID: c.viewerID}, state.IsSaved)
	return &state, nil
}

// SetSaveState writes an explicit target value. It does not touch the
// cache; SaveToggle owns the optimistic update around it.
func (c *Client) SetSaveState(ctx context.Context, tileID string, isSaved bool) (*SaveState, error) {
	if c.viewerID == 0 {
		return nil, ErrAnonymous
	}
	var state SaveState
	body := map[string]bool{"isSaved": isSaved}
	if err := c.do(ctx, http.MethodPost, c.saveStatePath(tileID), nil, body, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) saveStatePath(tileID string) string {
	return fmt.Sprintf("/users/%d/tiles/%s", c.viewerID, url.PathEscape(tileID))
}

func (c *Client) listQuery(page int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if c.viewerID != 0 {
		q.Set("authUserId", strconv.FormatUint(uint64(c.viewerID), 10))
	}
	return q
}

func (c *Client) listTiles(ctx context.Context, path string, q url.Values) ([]Tile, error) {
	var resp tileListResponse
	if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	c.cache.Seed(c.viewerID, resp.Data.Tiles)
	return resp.Data.Tiles, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			apiErr.Message = e.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
