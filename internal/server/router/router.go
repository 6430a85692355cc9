package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/auth"
	"github.com/mamadbah2/farmops/internal/domain/models"
	"github.com/mamadbah2/farmops/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// New wires the Gin engine with required routes and middlewares. authn runs
// in front of every /api route.
func New(h *handlers.Handler, authn gin.HandlerFunc, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", h.Healthz)

	var (
		manager = auth.RequireRole(models.RoleManager)
		field   = auth.RequireRole(models.RoleManager, models.RoleWorker)
		selling = auth.RequireRole(models.RoleManager, models.RoleSalesRep)
		worker  = auth.RequireRole(models.RoleWorker)
	)

	api := r.Group("/api", authn)

	api.GET("/dashboard", manager, h.ManagerDashboard)
	api.GET("/dashboard/worker", worker, h.WorkerDashboard)
	api.GET("/dashboard/sales", selling, h.SalesDashboard)

	api.GET("/eggs", field, h.ListEggs)
	api.POST("/eggs", field, h.RecordEggs)
	api.PUT("/eggs/:id", manager, h.UpdateEggs)
	api.DELETE("/eggs/:id", manager, h.DeleteEggs)

	api.GET("/mortality", field, h.ListMortality)
	api.POST("/mortality", field, h.RecordMortality)
	api.PUT("/mortality/:id", manager, h.UpdateMortality)
	api.DELETE("/mortality/:id", manager, h.DeleteMortality)

	feed := api.Group("/feed")
	feed.GET("/allocations", field, h.ListFeedAllocations)
	feed.POST("/allocations", field, h.AllocateFeed)
	feed.DELETE("/allocations/:id", manager, h.DeleteFeedAllocation)
	feed.GET("/stock", manager, h.ListFeedStock)
	feed.POST("/stock", manager, h.AddFeedStock)
	feed.DELETE("/stock/:id", manager, h.DeleteFeedStock)

	api.GET("/sales", selling, h.ListSales)
	api.POST("/sales", selling, h.RecordSale)
	api.PUT("/sales/:id", manager, h.UpdateSale)
	api.DELETE("/sales/:id", manager, h.DeleteSale)

	api.GET("/tasks", h.ListTasks)
	api.POST("/tasks", manager, h.CreateTask)
	api.PUT("/tasks/:id", manager, h.UpdateTask)
	api.PATCH("/tasks/:id/status", h.UpdateTaskStatus)
	api.DELETE("/tasks/:id", manager, h.DeleteTask)

	api.GET("/users", manager, h.ListUsers)
	api.POST("/users/invite", manager, h.InviteUser)
	api.PUT("/users/:id", manager, h.UpdateUser)
	api.DELETE("/users/:id", manager, h.DeleteUser)

	api.GET("/settings", h.Settings)
	api.PUT("/settings/profile", h.UpdateOwnProfile)

	api.GET("/reports/:kind", h.Report)
	api.GET("/snapshots", manager, h.ListSnapshots)
	api.POST("/snapshots", manager, h.CreateSnapshot)

	api.GET("/ai/suggestions", manager, h.ListSuggestions)
	api.POST("/ai/suggestions", manager, h.GenerateSuggestion)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// requestID reuses the caller's request ID or mints one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")))
	}
}
