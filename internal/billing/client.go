package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Marga-Ghale/ora-members-backend/internal/db"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
)

// subscriptionCacheTTL keeps the billing API off the hot path for reads.
// Seat adjustments invalidate the workspace's entry immediately.
const subscriptionCacheTTL = 60 * time.Second

// Client talks to the billing provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *db.RedisDB // optional, nil disables caching
}

func NewClient(baseURL, apiKey string, cache *db.RedisDB) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

func (c *Client) GetSubscriptions(ctx context.Context, workspaceID string) ([]models.SubscriptionView, error) {
	cacheKey := "billing:subs:" + workspaceID
	if c.cache != nil {
		var cached []models.SubscriptionView
		if err := c.cache.GetCache(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var subs []models.SubscriptionView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/workspaces/%s/subscriptions", workspaceID), nil, &subs); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetCache(ctx, cacheKey, subs, subscriptionCacheTTL); err != nil {
			log.Printf("[Billing] Failed to cache subscriptions for workspace %s: %v", workspaceID, err)
		}
	}
	return subs, nil
}

func (c *Client) IncrementSeats(ctx context.Context, subscriptionID string, delta int) error {
	return c.adjustSeats(ctx, subscriptionID, delta)
}

func (c *Client) DecrementSeats(ctx context.Context, subscriptionID string, delta int) error {
	return c.adjustSeats(ctx, subscriptionID, -delta)
}

func (c *Client) adjustSeats(ctx context.Context, subscriptionID string, delta int) error {
	body := map[string]int{"delta": delta}
	path := fmt.Sprintf("/v1/subscriptions/%s/seats", subscriptionID)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.InvalidateCache(ctx, "billing:subs:*"); err != nil {
			log.Printf("[Billing] Failed to invalidate subscription cache: %v", err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("billing API returned %d: %s", resp.StatusCode, string(payload))
	}

	if dest != nil {
		return json.NewDecoder(resp.Body).Decode(dest)
	}
	return nil
}
