package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/config"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:        ":0",
			IngestRPS:   1000,
			IngestBurst: 1000,
		},
		Dashboard: config.DashboardConfig{
			OfflineTimeout: 5 * time.Minute,
			StorageTimeout: 5 * time.Second,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, database.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if cfg == nil {
		cfg = testConfig()
	}
	collector := metrics.NewCollector(store, cfg.Dashboard.OfflineTimeout)
	return NewServer(cfg, store, collector), store
}

func registerServer(t *testing.T, store database.Store, server *database.Server) *database.Server {
	t.Helper()
	if err := store.CreateServer(context.Background(), server); err != nil {
		t.Fatalf("failed to register server: %v", err)
	}
	return server
}

func validPush(hostname, apiKey string) map[string]string {
	return map[string]string{
		"server_id":      hostname,
		"api_key":        apiKey,
		"uptime_days":    "12",
		"load_average":   "0.72",
		"mem_total":      "8388608",
		"mem_available":  "4194304",
		"disk_total":     "104857600",
		"disk_available": "52428800",
		"mail_queue":     "3",
	}
}

func pushForm(t *testing.T, s *Server, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/receiver", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, s *Server, path string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w.Code, decodeBody(t, w)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
	return body
}
