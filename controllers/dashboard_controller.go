package controller

import (
	"leadflow/store"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type DashboardController struct {
	Store  *store.Store
	Logger *logrus.Entry
}

func NewDashboardController(st *store.Store, logger *logrus.Entry) *DashboardController {
	return &DashboardController{
		Store:  st,
		Logger: logger,
	}
}

// GetDashboardStats returns lead, sequence and send counters
func (dc *DashboardController) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := dc.Store.Stats(c.UserContext())
	if err != nil {
		return storageFailure(c, "dashboard_stats", err)
	}

	dc.Logger.WithFields(logrus.Fields{
		"total_leads": stats.TotalLeads,
		"sends":       stats.Sends,
	}).Debug("Dashboard stats computed")
	return c.JSON(stats)
}
