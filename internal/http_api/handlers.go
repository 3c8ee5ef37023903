package http_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nothingcube/regsync/internal/models"
)

// ContainersResponse carries the current registry snapshot together with the
// store's loading flag, mirroring what the console renders.
type ContainersResponse struct {
	Loading    bool                      `json:"loading"`
	Containers []*models.ContainerConfig `json:"containers"`
}

// health is a liveness probe for the synchronizer process.
func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// containers serves the registry store's current snapshot.
func (s *HTTPServer) containers(c *gin.Context) {
	c.JSON(http.StatusOK, ContainersResponse{
		Loading:    s.registry.Loading(),
		Containers: s.registry.Containers(),
	})
}

// items serves the shared reward-item catalog.
func (s *HTTPServer) items(c *gin.Context) {
	items, err := s.catalog.Items(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, models.ErrUnauthenticated) || errors.Is(err, models.ErrSessionExpired) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, items)
}

// syncStatus exposes the push channel's state machine for the console's
// connection indicator.
func (s *HTTPServer) syncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.sync.Status())
}
