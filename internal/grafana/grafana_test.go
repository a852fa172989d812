package grafana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openntia/pfewatch/internal/config"
)

func TestDetectionLink(t *testing.T) {
	b := NewLinkBuilder(config.GrafanaConfig{
		URL:          "https://grafana.example.net",
		DashboardUID: "pfe-exceptions",
		OrgID:        2,
	})

	link := b.DetectionLink("mx480-lab1", "0", "sw_error")
	u, err := url.Parse(link)
	require.NoError(t, err)

	assert.Equal(t, "/d/pfe-exceptions", u.Path)
	q := u.Query()
	assert.Equal(t, "2", q.Get("orgId"))
	assert.Equal(t, "mx480-lab1", q.Get("var-device"))
	assert.Equal(t, "0", q.Get("var-slot"))
	assert.Equal(t, "sw_error", q.Get("var-exception"))
	assert.Equal(t, "now-2d", q.Get("from"))
	assert.Equal(t, "now", q.Get("to"))
}

func TestDetectionLinkDegradesToLanding(t *testing.T) {
	b := NewLinkBuilder(config.GrafanaConfig{
		URL:          "://not-a-url",
		DashboardUID: "pfe-exceptions",
	})
	assert.Equal(t, "://not-a-url", b.DetectionLink("d", "0", "e"))

	noUID := NewLinkBuilder(config.GrafanaConfig{URL: "https://grafana.example.net"})
	assert.Equal(t, "https://grafana.example.net", noUID.DetectionLink("d", "0", "e"))

	unconfigured := NewLinkBuilder(config.GrafanaConfig{})
	assert.Equal(t, "", unconfigured.DetectionLink("d", "0", "e"))
}

func TestListDashboards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "dash-db", r.URL.Query().Get("type"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"uid":"pfe-exceptions","title":"PFE Exceptions","url":"/d/pfe-exceptions"}]`))
	}))
	defer srv.Close()

	c := NewClient(config.GrafanaConfig{URL: srv.URL, Token: "test-token"}, nil)
	dashboards, err := c.ListDashboards(context.Background())
	require.NoError(t, err)
	require.Len(t, dashboards, 1)
	assert.Equal(t, "pfe-exceptions", dashboards[0].UID)
	assert.Equal(t, "PFE Exceptions", dashboards[0].Title)
}

func TestGetDashboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dashboards/uid/pfe-exceptions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dashboard":{"uid":"pfe-exceptions","title":"PFE Exceptions"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.GrafanaConfig{URL: srv.URL}, nil)
	doc, err := c.GetDashboard(context.Background(), "pfe-exceptions")
	require.NoError(t, err)
	assert.Contains(t, doc, "dashboard")
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(config.GrafanaConfig{URL: srv.URL}, nil)
	_, err := c.ListDashboards(context.Background())
	assert.Error(t, err)
}
