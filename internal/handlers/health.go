package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/database"
	"github.com/brimstore/recsys/internal/recommend"
)

type HealthHandler struct {
	logger *logrus.Logger
	db     *database.Database
	hub    *recommend.DataHub
}

func NewHealthHandler(logger *logrus.Logger, db *database.Database, hub *recommend.DataHub) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		db:     db,
		hub:    hub,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	services := h.db.Health(c.Request.Context())

	if _, err := h.hub.Snapshot(); err != nil {
		services["model"] = "unhealthy: no snapshot loaded"
	} else {
		services["model"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, s := range services {
		if s != "healthy" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"services":  services,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
