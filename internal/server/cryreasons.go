package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"letbabytalk/internal/model"
)

func (s *Server) listCryReasons(c *gin.Context) {
	var reasons []model.CryReasonDescription
	if err := s.db.Order("class_name ASC").Find(&reasons).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not load cry reasons"})
		return
	}
	c.JSON(http.StatusOK, reasons)
}

func (s *Server) getCryReason(c *gin.Context) {
	var reason model.CryReasonDescription
	err := s.db.Where("class_name = ?", c.Param("className")).First(&reason).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Cry reason not found"})
		return
	}
	c.JSON(http.StatusOK, reason)
}
