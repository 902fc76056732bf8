// internal/database/models.go
package database

import (
	"time"
)

// Server is a registered machine allowed to push metrics. Rows are
// provisioned administratively (config sync or the admin API) and are
// read-only to the ingestion path.
type Server struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hostname  string    `json:"hostname"`
	APIKey    string    `json:"api_key,omitempty"`
	Location  string    `json:"location"`
	Provider  string    `json:"host_provider"`
	Type      string    `json:"server_type"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServerStatus is the latest reported snapshot for one server. There is
// at most one per server id; every accepted push replaces it whole.
type ServerStatus struct {
	ID               string    `json:"id"`
	UptimeDays       int64     `json:"uptime_days"`
	LoadAverage      float64   `json:"load_average"`
	MemTotal         int64     `json:"mem_total"`
	MemFree          int64     `json:"mem_free"`
	MemUsagePercent  float64   `json:"mem_usage_percent"`
	DiskTotal        int64     `json:"disk_total"`
	DiskAvailable    int64     `json:"disk_available"`
	DiskUsagePercent float64   `json:"disk_usage_percent"`
	MailQueue        int64     `json:"mail_queue"`
	Status           string    `json:"status"`
	LastUpdate       time.Time `json:"last_update"`
	LastUpdateUnix   int64     `json:"last_update_unix"`
}

// ServerFilters narrows GetServers results.
type ServerFilters struct {
	Active *bool
}
