package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/signet-id/signet/internal/models"
)

// Client talks to the identity provider on behalf of a relying party.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the authority at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Verify asks the authority to check a token. Both the 200 and 403 replies
// carry a VerifyResult body; any other reply is an error.
func (c *Client) Verify(ctx context.Context, token string) (*models.VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authority verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusForbidden {
		return nil, fmt.Errorf("authority verify: unexpected status %d", resp.StatusCode)
	}

	var result models.VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("authority verify: decode response: %w", err)
	}
	return &result, nil
}

// Logout forwards the credential to the authority's logout endpoint.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("authority logout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authority logout: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Subscribe registers webhookURL with the authority so this relying party
// receives revocation events.
func (c *Client) Subscribe(ctx context.Context, webhookURL string) error {
	payload, err := json.Marshal(models.SubscribeRequest{URL: webhookURL})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hooks", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("authority subscribe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("authority subscribe: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LoginURL builds the authority's login URL carrying the return address.
func (c *Client) LoginURL(redirectURL string) string {
	return c.baseURL + "/login?redirect_url=" + url.QueryEscape(redirectURL)
}
