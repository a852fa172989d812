// Package grafana builds dashboard deep links for detections and talks to
// the Grafana HTTP API for dashboard discovery.
package grafana

import (
	"net/url"
	"strconv"

	"github.com/openntia/pfewatch/internal/config"
)

// LinkBuilder renders dashboard deep links. Link construction never fails:
// a malformed base URL degrades to the plain landing URL so a detection is
// never dropped over a bad link.
type LinkBuilder struct {
	baseURL      string
	dashboardUID string
	orgID        int
}

// NewLinkBuilder creates a link builder from configuration.
func NewLinkBuilder(cfg config.GrafanaConfig) *LinkBuilder {
	orgID := cfg.OrgID
	if orgID < 1 {
		orgID = 1
	}
	return &LinkBuilder{
		baseURL:      cfg.URL,
		dashboardUID: cfg.DashboardUID,
		orgID:        orgID,
	}
}

// DetectionLink returns a deep link into the exceptions dashboard filtered
// to the given series, with a 2-day display window ending now.
func (b *LinkBuilder) DetectionLink(device, slot, exception string) string {
	if b.baseURL == "" {
		return ""
	}
	if b.dashboardUID == "" {
		return b.baseURL
	}

	base, err := url.Parse(b.baseURL)
	if err != nil {
		return b.baseURL
	}
	base = base.JoinPath("d", b.dashboardUID)

	q := url.Values{}
	q.Set("orgId", strconv.Itoa(b.orgID))
	q.Set("var-device", device)
	q.Set("var-slot", slot)
	q.Set("var-exception", exception)
	q.Set("from", "now-2d")
	q.Set("to", "now")
	base.RawQuery = q.Encode()

	return base.String()
}

// DashboardLink returns a plain link to a dashboard by UID.
func (b *LinkBuilder) DashboardLink(uid string) string {
	if b.baseURL == "" || uid == "" {
		return b.baseURL
	}
	base, err := url.Parse(b.baseURL)
	if err != nil {
		return b.baseURL
	}
	return base.JoinPath("d", url.PathEscape(uid)).String()
}
