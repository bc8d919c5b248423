// Package tmdb calls the external movie-metadata provider over HTTP.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"movielist/pkg/domain"
)

const searchPath = "/search/multi"

// Client calls the provider's search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError represents a non-success provider response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tmdb: %s (status %d)", e.Message, e.Status)
}

// NewClient constructs a provider client. The API key is merged into every
// request; callers may still override it per call.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search issues one GET against the multi-search endpoint. Base parameters are
// applied first and caller parameters last, so on a key collision the caller
// wins. Non-2xx responses surface as *APIError; there is no retry.
func (c *Client) Search(ctx context.Context, params map[string]string) (domain.SearchPage, error) {
	query := url.Values{}
	query.Set("api_key", c.apiKey)
	for key, value := range params {
		query.Set(key, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+query.Encode(), nil)
	if err != nil {
		return domain.SearchPage{}, err
	}
	req.Header.Set("Accept", "application/json")

	var page domain.SearchPage
	if err := c.do(req, &page); err != nil {
		return domain.SearchPage{}, err
	}
	return page, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			StatusMessage string `json:"status_message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&errResp)
		msg := errResp.StatusMessage
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
