// internal/web/ingest.go - Accepts metric pushes from agents
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/status"
)

// requiredFields lists the form fields an agent must send, in the order
// they are checked. The first missing one names the 400 response.
var requiredFields = []string{
	"server_id",
	"api_key",
	"uptime_days",
	"load_average",
	"mem_total",
	"mem_available",
	"disk_total",
	"disk_available",
	"mail_queue",
}

// POST /api/receiver
func (s *Server) receiveMetrics(c *gin.Context) {
	started := time.Now()

	if c.Request.Method != http.MethodPost {
		s.rejectIngest(c, started, http.StatusMethodNotAllowed, "Method not allowed", "method_not_allowed", logrus.Fields{
			"method": c.Request.Method,
			"remote": c.ClientIP(),
		})
		return
	}

	for _, field := range requiredFields {
		if _, ok := c.GetPostForm(field); !ok {
			s.rejectIngest(c, started, http.StatusBadRequest, "Missing required field: "+field, "missing_field", logrus.Fields{
				"field":  field,
				"remote": c.ClientIP(),
			})
			return
		}
	}

	hostname := status.SanitizeString(c.PostForm("server_id"))
	apiKey := status.SanitizeString(c.PostForm("api_key"))

	// Absent timestamp means receipt time; a present but malformed one
	// coerces to 0 like every other numeric field.
	timestamp := time.Now().Unix()
	if raw, ok := c.GetPostForm("timestamp"); ok {
		timestamp = status.LooseInt(raw)
	}

	ctx, cancel := s.storageContext(c)
	defer cancel()

	server, err := s.store.Authenticate(ctx, hostname, apiKey)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			s.rejectIngest(c, started, http.StatusUnauthorized, "Unauthorized - Invalid credentials", "unauthorized", logrus.Fields{
				"server": hostname,
				"remote": c.ClientIP(),
			})
			return
		}
		s.metrics.RecordDatabaseOp("authenticate", err)
		s.rejectIngest(c, started, http.StatusInternalServerError, "Server error: "+err.Error(), "storage_error", logrus.Fields{
			"server": hostname,
			"remote": c.ClientIP(),
		})
		return
	}

	if !server.Active {
		s.rejectIngest(c, started, http.StatusForbidden, "Server is inactive", "inactive", logrus.Fields{
			"server":    server.Name,
			"server_id": server.ID,
			"remote":    c.ClientIP(),
		})
		return
	}

	snapshot := &database.ServerStatus{
		ID:               server.ID,
		UptimeDays:       status.LooseInt(c.PostForm("uptime_days")),
		LoadAverage:      status.LooseFloat(c.PostForm("load_average")),
		MemTotal:         status.LooseInt(c.PostForm("mem_total")),
		MemFree:          status.LooseInt(c.PostForm("mem_available")),
		MemUsagePercent:  status.LooseFloat(c.PostForm("mem_usage_percent")),
		DiskTotal:        status.LooseInt(c.PostForm("disk_total")),
		DiskAvailable:    status.LooseInt(c.PostForm("disk_available")),
		DiskUsagePercent: status.LooseFloat(c.PostForm("disk_usage_percent")),
		MailQueue:        status.LooseInt(c.PostForm("mail_queue")),
		Status:           status.Online,
		LastUpdate:       time.Unix(timestamp, 0),
		LastUpdateUnix:   timestamp,
	}

	err = s.store.UpsertStatus(ctx, snapshot)
	s.metrics.RecordDatabaseOp("upsert_status", err)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"server":    server.Name,
			"server_id": server.ID,
		}).Error("Failed to store metrics")
		s.rejectIngest(c, started, http.StatusInternalServerError, "Failed to store data: "+err.Error(), "storage_error", logrus.Fields{
			"server":    server.Name,
			"server_id": server.ID,
		})
		return
	}

	logrus.WithFields(logrus.Fields{
		"server":    server.Name,
		"server_id": server.ID,
		"remote":    c.ClientIP(),
		"timestamp": timestamp,
	}).Info("Data received")

	s.metrics.RecordIngest("accepted", time.Since(started))
	s.broadcast(WSMessage{
		Type: "server_update",
		Data: gin.H{
			"server_id":   server.ID,
			"server_name": server.Name,
			"snapshot":    snapshot,
		},
	})

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     "Data received and stored",
		"server_id":   server.ID,
		"server_name": server.Name,
		"timestamp":   timestamp,
	})
}

func (s *Server) rejectIngest(c *gin.Context, started time.Time, code int, message, result string, fields logrus.Fields) {
	s.metrics.RecordIngest(result, time.Since(started))
	logrus.WithFields(fields).WithField("status", code).Warn("Rejected metrics submission: " + message)
	c.JSON(code, gin.H{
		"status":  "error",
		"message": message,
	})
}
