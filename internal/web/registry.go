// internal/web/registry.go - Administrative CRUD for server registrations
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
)

type ServerRequest struct {
	Name     string `json:"name" binding:"required"`
	Hostname string `json:"hostname" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
	Location string `json:"location"`
	Provider string `json:"host_provider"`
	Type     string `json:"server_type"`
	Active   bool   `json:"active"`
}

// redact strips the credential before a registration leaves the API.
func redact(server database.Server) database.Server {
	server.APIKey = ""
	return server
}

// GET /api/servers
func (s *Server) getServers(c *gin.Context) {
	ctx, cancel := s.storageContext(c)
	defer cancel()

	servers, err := s.store.GetServers(ctx, database.ServerFilters{})
	s.metrics.RecordDatabaseOp("get_servers", err)
	if err != nil {
		s.storageError(c, "get servers", err)
		return
	}

	response := make([]database.Server, 0, len(servers))
	for _, server := range servers {
		response = append(response, redact(server))
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  response,
		"count": len(response),
	})
}

// GET /api/servers/:id
func (s *Server) getServer(c *gin.Context) {
	ctx, cancel := s.storageContext(c)
	defer cancel()

	server, err := s.store.GetServer(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Server not found"})
			return
		}
		s.storageError(c, "get server", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": redact(*server)})
}

// POST /api/servers
func (s *Server) createServer(c *gin.Context) {
	var req ServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.storageContext(c)
	defer cancel()

	server := &database.Server{
		Name:     req.Name,
		Hostname: req.Hostname,
		APIKey:   req.APIKey,
		Location: req.Location,
		Provider: req.Provider,
		Type:     req.Type,
		Active:   req.Active,
	}

	err := s.store.CreateServer(ctx, server)
	s.metrics.RecordDatabaseOp("create_server", err)
	if err != nil {
		logrus.WithError(err).Error("Failed to create server")
		s.storageError(c, "create server", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"server":    server.Name,
		"server_id": server.ID,
	}).Info("Server registered")

	c.JSON(http.StatusCreated, gin.H{"data": redact(*server)})
}

// PUT /api/servers/:id
func (s *Server) updateServer(c *gin.Context) {
	var req ServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := s.storageContext(c)
	defer cancel()

	existing, err := s.store.GetServer(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrServerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Server not found"})
			return
		}
		s.storageError(c, "get server", err)
		return
	}

	existing.Name = req.Name
	existing.Hostname = req.Hostname
	existing.APIKey = req.APIKey
	existing.Location = req.Location
	existing.Provider = req.Provider
	existing.Type = req.Type
	existing.Active = req.Active

	err = s.store.UpdateServer(ctx, existing)
	s.metrics.RecordDatabaseOp("update_server", err)
	if err != nil {
		s.storageError(c, "update server", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": redact(*existing)})
}

// DELETE /api/servers/:id
func (s *Server) deleteServer(c *gin.Context) {
	ctx, cancel := s.storageContext(c)
	defer cancel()

	err := s.store.DeleteServer(ctx, c.Param("id"))
	s.metrics.RecordDatabaseOp("delete_server", err)
	if err != nil {
		s.storageError(c, "delete server", err)
		return
	}

	logrus.WithField("server_id", c.Param("id")).Info("Server deregistered")
	c.JSON(http.StatusOK, gin.H{"message": "Server deleted"})
}
