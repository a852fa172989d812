package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/logging"
)

// Dashboard is one entry from the Grafana search API.
type Dashboard struct {
	UID       string   `json:"uid"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	FolderUID string   `json:"folderUid,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Client talks to the Grafana HTTP API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logging.Logger
}

// NewClient creates a Grafana API client from configuration.
func NewClient(cfg config.GrafanaConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Global()
	}
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// ListDashboards returns all dashboards visible to the configured token.
func (c *Client) ListDashboards(ctx context.Context) ([]Dashboard, error) {
	body, err := c.get(ctx, "/api/search?type=dash-db")
	if err != nil {
		return nil, err
	}

	var dashboards []Dashboard
	if err := json.Unmarshal(body, &dashboards); err != nil {
		return nil, fmt.Errorf("decode dashboard list: %w", err)
	}
	return dashboards, nil
}

// GetDashboard returns the raw dashboard document for a UID. The document
// shape is dashboard-specific, so it is returned as an open map, the same
// way Grafana serves it.
func (c *Client) GetDashboard(ctx context.Context, uid string) (map[string]interface{}, error) {
	body, err := c.get(ctx, "/api/dashboards/uid/"+url.PathEscape(uid))
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode dashboard %s: %w", uid, err)
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build grafana request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grafana request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read grafana response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grafana returned %d for %s", resp.StatusCode, path)
	}
	return body, nil
}
