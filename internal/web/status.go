// internal/web/status.go - Joined registry/snapshot view for the dashboard
package web

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/status"
)

// ServerRow is one dashboard row: registration fields, the latest
// snapshot when one exists, and the display fields derived from it.
// Snapshot fields are absent from the JSON for servers that have never
// reported.
type ServerRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
	Location string `json:"location"`
	Provider string `json:"host_provider"`
	Type     string `json:"server_type"`

	*database.ServerStatus

	Status          string          `json:"status"`
	TimeSinceUpdate string          `json:"time_since_update"`
	MemTotalGB      float64         `json:"mem_total_gb"`
	MemFreeGB       float64         `json:"mem_free_gb"`
	DiskTotalGB     float64         `json:"disk_total_gb"`
	DiskAvailableGB float64         `json:"disk_available_gb"`
	LoadSeverity    status.Severity `json:"load_severity"`
	MemSeverity     status.Severity `json:"mem_severity"`
	DiskSeverity    status.Severity `json:"disk_severity"`
	QueueSeverity   status.Severity `json:"queue_severity"`
}

// GET /api/status
func (s *Server) getStatus(c *gin.Context) {
	ctx, cancel := s.storageContext(c)
	defer cancel()

	active := true
	servers, err := s.store.GetServers(ctx, database.ServerFilters{Active: &active})
	s.metrics.RecordDatabaseOp("get_servers", err)
	if err != nil {
		s.storageError(c, "get servers", err)
		return
	}

	statuses, err := s.store.GetStatuses(ctx)
	s.metrics.RecordDatabaseOp("get_statuses", err)
	if err != nil {
		s.storageError(c, "get statuses", err)
		return
	}

	sort.Slice(servers, func(i, j int) bool {
		if servers[i].Name != servers[j].Name {
			return servers[i].Name < servers[j].Name
		}
		return servers[i].ID < servers[j].ID
	})

	now := time.Now().Unix()
	online := 0
	rows := make([]ServerRow, 0, len(servers))

	for _, server := range servers {
		row := ServerRow{
			ID:            server.ID,
			Name:          server.Name,
			Hostname:      server.Hostname,
			Location:      server.Location,
			Provider:      server.Provider,
			Type:          server.Type,
			LoadSeverity:  status.SeverityOK,
			MemSeverity:   status.SeverityOK,
			DiskSeverity:  status.SeverityOK,
			QueueSeverity: status.SeverityOK,
		}

		var lastUnix int64
		if snap, ok := statuses[server.ID]; ok {
			snap := snap
			row.ServerStatus = &snap
			lastUnix = snap.LastUpdateUnix

			row.MemTotalGB = status.KBToGB(snap.MemTotal)
			row.MemFreeGB = status.KBToGB(snap.MemFree)
			row.DiskTotalGB = status.KBToGB(snap.DiskTotal)
			row.DiskAvailableGB = status.KBToGB(snap.DiskAvailable)
			row.LoadSeverity = status.Classify(snap.LoadAverage, status.KindLoad)
			row.MemSeverity = status.Classify(snap.MemUsagePercent, status.KindPercent)
			row.DiskSeverity = status.Classify(snap.DiskUsagePercent, status.KindPercent)
			row.QueueSeverity = status.Classify(float64(snap.MailQueue), status.KindQueue)
		}

		if status.IsOnline(lastUnix, now, s.config.Dashboard.OfflineTimeout) {
			row.Status = status.Online
			online++
		} else {
			row.Status = status.Offline
		}
		row.TimeSinceUpdate = status.HumanizeAge(now - lastUnix)

		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   rows,
		"summary": gin.H{
			"total_servers":     len(rows),
			"online_servers":    online,
			"offline_servers":   len(rows) - online,
			"online_percentage": status.OnlinePercentage(online, len(rows)),
		},
		"timestamp":   now,
		"api_version": apiVersion,
	})
}

func (s *Server) storageError(c *gin.Context, op string, err error) {
	logrus.WithError(err).Error("Failed to " + op)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "Server error: " + err.Error(),
	})
}
