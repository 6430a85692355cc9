package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ManagerDashboard handles GET /api/dashboard. It always answers 200; an
// unavailable view is signalled in the body.
func (h *Handler) ManagerDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Dashboard.Manager(c.Request.Context()))
}

// WorkerDashboard handles GET /api/dashboard/worker.
func (h *Handler) WorkerDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Dashboard.Worker(c.Request.Context(), identity(c)))
}

// SalesDashboard handles GET /api/dashboard/sales.
func (h *Handler) SalesDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Dashboard.Sales(c.Request.Context()))
}
