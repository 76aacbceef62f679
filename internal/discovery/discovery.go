package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

// Client looks up the routers linked to a beneficiary wallet in the x402
// directory.
type Client struct {
	baseURL string
	wallet  string
	client  *http.Client
}

// NewClient creates a directory client for the given beneficiary wallet.
func NewClient(baseURL, walletAddress string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wallet:  walletAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type linksResponse struct {
	Success bool `json:"success"`
	Links   []struct {
		RouterAddress string `json:"router_address"`
		Metadata      *struct {
			Name string `json:"name"`
		} `json:"metadata"`
	} `json:"links"`
}

// Discover returns the routers currently linked to the wallet. A missing or
// empty links array is an empty result, not an error.
func (c *Client) Discover(ctx context.Context) ([]domain.RouterLink, error) {
	url := fmt.Sprintf("%s/api/links/beneficiary/%s", c.baseURL, c.wallet)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create directory request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var out linksResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid directory response: %w", err)
	}
	if !out.Success {
		return nil, errors.New("directory reported failure")
	}

	links := make([]domain.RouterLink, 0, len(out.Links))
	for _, l := range out.Links {
		if l.RouterAddress == "" {
			continue
		}
		name := ""
		if l.Metadata != nil {
			name = l.Metadata.Name
		}
		links = append(links, domain.RouterLink{Address: l.RouterAddress, Name: name})
	}
	return links, nil
}
