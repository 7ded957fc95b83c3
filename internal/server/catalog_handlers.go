package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightline-agency/agency/internal/models"
)

// @Summary List services
// @Description Public service catalog
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Service
// @Router /services [get]
func (s *Server) listServices(c *gin.Context) {
	var entries []models.CatalogEntry
	if err := s.db.Order("title ASC").Find(&entries).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list services")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	services := make([]models.Service, len(entries))
	for i := range entries {
		services[i] = entries[i].Service()
	}

	c.JSON(http.StatusOK, services)
}
