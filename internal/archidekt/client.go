// Package archidekt provides a rate-limited client for the Archidekt API.
//
// The client performs exactly one attempt per request: the mirror run must
// never be computed from partial data, so a failed fetch surfaces to the
// caller and aborts the run rather than being retried here.
package archidekt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://archidekt.com/api"
	requestInterval = 100 * time.Millisecond // 10 req/sec
	requestTimeout  = 30 * time.Second
)

// Client represents an Archidekt API client with rate limiting.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests and self-hosted
// proxies.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRequestInterval overrides the minimum delay between requests.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(rate.Every(d), 1) }
}

// NewClient creates a new Archidekt API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		baseURL:     defaultBaseURL,
		userAgent:   "archidekt-mirror/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUser retrieves a user profile by its numeric id.
func (c *Client) GetUser(ctx context.Context, userID int) (*User, error) {
	url := fmt.Sprintf("%s/users/%d/", c.baseURL, userID)

	var user User
	if err := c.get(ctx, url, &user); err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

// ListDecks retrieves every deck owned by the given user, transparently
// following the pagination cursor until the server returns a null next URL.
// A server that never returns null makes this loop run until ctx is done.
func (c *Client) ListDecks(ctx context.Context, ownerID int) ([]DeckStub, error) {
	url := fmt.Sprintf("%s/decks/cards/?ownerId=%d", c.baseURL, ownerID)

	var decks []DeckStub
	for url != "" {
		var page deckPage
		if err := c.get(ctx, url, &page); err != nil {
			return nil, fmt.Errorf("failed to list decks for owner %d: %w", ownerID, err)
		}

		decks = append(decks, page.Results...)

		if page.Next != nil {
			url = *page.Next
		} else {
			url = ""
		}
	}

	return decks, nil
}

// GetFolder retrieves a folder record by id. Private folders come back as an
// *APIError recognizable via IsAuthDenied.
func (c *Client) GetFolder(ctx context.Context, folderID int) (*Folder, error) {
	url := fmt.Sprintf("%s/decks/folders/%d/", c.baseURL, folderID)

	var folder Folder
	if err := c.get(ctx, url, &folder); err != nil {
		return nil, fmt.Errorf("failed to get folder %d: %w", folderID, err)
	}

	return &folder, nil
}

// GetDeck retrieves the small projection of a deck by id.
func (c *Client) GetDeck(ctx context.Context, deckID int) (*Deck, error) {
	url := fmt.Sprintf("%s/decks/%d/small/?format=json", c.baseURL, deckID)

	var deck Deck
	if err := c.get(ctx, url, &deck); err != nil {
		return nil, fmt.Errorf("failed to get deck %d: %w", deckID, err)
	}

	return &deck, nil
}

// get performs a single rate-limited GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse JSON response: %w", err)
		}
		return nil

	case http.StatusNotFound:
		return &NotFoundError{URL: url}

	default:
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Detail != "" {
			apiErr.StatusCode = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}
