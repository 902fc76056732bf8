package web

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
)

func seedSnapshot(t *testing.T, store database.Store, snap *database.ServerStatus) {
	t.Helper()
	if err := store.UpsertStatus(context.Background(), snap); err != nil {
		t.Fatalf("UpsertStatus: %v", err)
	}
}

func rows(t *testing.T, body map[string]interface{}) []map[string]interface{} {
	t.Helper()
	data, ok := body["data"].([]interface{})
	if !ok {
		t.Fatalf("missing data array in %v", body)
	}
	out := make([]map[string]interface{}, 0, len(data))
	for _, r := range data {
		out = append(out, r.(map[string]interface{}))
	}
	return out
}

func TestGetStatusSummary(t *testing.T) {
	s, store := newTestServer(t, nil)
	now := time.Now().Unix()

	for i, name := range []string{"alpha", "bravo", "charlie", "delta"} {
		server := registerServer(t, store, &database.Server{
			Name: name, Hostname: name + ".example.com", APIKey: "k", Active: true,
		})
		last := now - 10
		if i == 3 {
			last = now - 9000 // stale
		}
		seedSnapshot(t, store, &database.ServerStatus{
			ID: server.ID, Status: "online", LastUpdate: time.Unix(last, 0), LastUpdateUnix: last,
		})
	}

	code, body := getJSON(t, s, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "success" || body["api_version"] != "2.0" {
		t.Errorf("envelope: %v", body)
	}

	summary := body["summary"].(map[string]interface{})
	if summary["total_servers"].(float64) != 4 ||
		summary["online_servers"].(float64) != 3 ||
		summary["offline_servers"].(float64) != 1 ||
		summary["online_percentage"].(float64) != 75 {
		t.Errorf("summary = %v", summary)
	}
}

func TestGetStatusOrdering(t *testing.T) {
	s, store := newTestServer(t, nil)

	registerServer(t, store, &database.Server{ID: "2", Name: "alpha", Hostname: "a2.example.com", APIKey: "k", Active: true})
	registerServer(t, store, &database.Server{ID: "1", Name: "alpha", Hostname: "a1.example.com", APIKey: "k", Active: true})
	registerServer(t, store, &database.Server{ID: "3", Name: "Zulu", Hostname: "z.example.com", APIKey: "k", Active: true})
	registerServer(t, store, &database.Server{ID: "4", Name: "bravo", Hostname: "b.example.com", APIKey: "k", Active: true})

	code, body := getJSON(t, s, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	got := rows(t, body)
	// Byte-order sort: uppercase before lowercase, ties broken by id.
	wantNames := []string{"Zulu", "alpha", "alpha", "bravo"}
	wantIDs := []string{"3", "1", "2", "4"}
	for i, row := range got {
		if row["name"] != wantNames[i] || row["id"] != wantIDs[i] {
			t.Fatalf("row %d = %v/%v, want %v/%v", i, row["name"], row["id"], wantNames[i], wantIDs[i])
		}
	}
}

func TestGetStatusDerivedFields(t *testing.T) {
	s, store := newTestServer(t, nil)
	now := time.Now().Unix()

	server := registerServer(t, store, &database.Server{
		Name: "worker", Hostname: "w.example.com", APIKey: "k",
		Location: "Helsinki", Provider: "Hetzner", Type: "web", Active: true,
	})
	seedSnapshot(t, store, &database.ServerStatus{
		ID:               server.ID,
		UptimeDays:       7,
		LoadAverage:      2.5,
		MemTotal:         1048576,
		MemFree:          524288,
		MemUsagePercent:  72,
		DiskTotal:        2097152,
		DiskAvailable:    1048576,
		DiskUsagePercent: 90,
		MailQueue:        50,
		Status:           "online",
		LastUpdate:       time.Unix(now-125, 0),
		LastUpdateUnix:   now - 125,
	})

	code, body := getJSON(t, s, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	row := rows(t, body)[0]
	if row["status"] != "online" {
		t.Errorf("status = %v", row["status"])
	}
	if row["time_since_update"] != "2m ago" {
		t.Errorf("time_since_update = %v", row["time_since_update"])
	}
	if row["mem_total_gb"].(float64) != 1.0 || row["mem_free_gb"].(float64) != 0.5 {
		t.Errorf("mem conversions: %v / %v", row["mem_total_gb"], row["mem_free_gb"])
	}
	if row["disk_total_gb"].(float64) != 2.0 || row["disk_available_gb"].(float64) != 1.0 {
		t.Errorf("disk conversions: %v / %v", row["disk_total_gb"], row["disk_available_gb"])
	}
	// Raw KB values stay exposed next to the converted ones.
	if row["mem_total"].(float64) != 1048576 || row["disk_total"].(float64) != 2097152 {
		t.Errorf("raw values: %v / %v", row["mem_total"], row["disk_total"])
	}
	if row["load_severity"] != "danger" || row["mem_severity"] != "warning" ||
		row["disk_severity"] != "danger" || row["queue_severity"] != "ok" {
		t.Errorf("severities: %v %v %v %v",
			row["load_severity"], row["mem_severity"], row["disk_severity"], row["queue_severity"])
	}
	if row["host_provider"] != "Hetzner" || row["server_type"] != "web" || row["location"] != "Helsinki" {
		t.Errorf("registry fields: %v", row)
	}
}

func TestGetStatusServerWithoutSnapshot(t *testing.T) {
	s, store := newTestServer(t, nil)

	registerServer(t, store, &database.Server{
		Name: "silent", Hostname: "silent.example.com", APIKey: "k", Active: true,
	})

	code, body := getJSON(t, s, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	row := rows(t, body)[0]
	if row["status"] != "offline" {
		t.Errorf("expected offline, got %v", row["status"])
	}
	if _, present := row["uptime_days"]; present {
		t.Errorf("snapshot fields must be absent for never-reported servers: %v", row)
	}
	if row["mem_total_gb"].(float64) != 0 {
		t.Errorf("mem_total_gb = %v", row["mem_total_gb"])
	}
	if row["load_severity"] != "ok" {
		t.Errorf("load_severity = %v", row["load_severity"])
	}
}

func TestGetStatusExcludesInactive(t *testing.T) {
	s, store := newTestServer(t, nil)

	registerServer(t, store, &database.Server{Name: "on", Hostname: "on.example.com", APIKey: "k", Active: true})
	registerServer(t, store, &database.Server{Name: "off", Hostname: "off.example.com", APIKey: "k", Active: false})

	code, body := getJSON(t, s, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	got := rows(t, body)
	if len(got) != 1 || got[0]["name"] != "on" {
		t.Errorf("expected only the active server, got %v", got)
	}
}

func TestPushThenQueryMarksOnline(t *testing.T) {
	s, store := newTestServer(t, nil)
	registerServer(t, store, &database.Server{
		Name: "fresh", Hostname: "fresh.example.com", APIKey: "k", Active: true,
	})

	if w := pushForm(t, s, validPush("fresh.example.com", "k")); w.Code != http.StatusOK {
		t.Fatalf("push: %d", w.Code)
	}

	_, body := getJSON(t, s, "/api/status")
	row := rows(t, body)[0]
	if row["status"] != "online" {
		t.Errorf("expected online after fresh push, got %v", row["status"])
	}
}

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t, nil)

	code, body := getJSON(t, s, "/api/health")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}
