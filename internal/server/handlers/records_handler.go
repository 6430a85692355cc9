package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/farmops/internal/service/records"
)

func (h *Handler) listFilter(c *gin.Context) (records.ListFilter, bool) {
	from, to, shed, err := rangeQuery(c)
	if err != nil {
		h.fail(c, err)
		return records.ListFilter{}, false
	}
	return records.ListFilter{From: from, To: to, Shed: shed}, true
}

// ListEggs handles GET /api/eggs.
func (h *Handler) ListEggs(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	rows, err := h.svc.Records.ListEggs(c.Request.Context(), identity(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RecordEggs handles POST /api/eggs.
func (h *Handler) RecordEggs(c *gin.Context) {
	var in records.EggsInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.RecordEggs(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateEggs handles PUT /api/eggs/:id.
func (h *Handler) UpdateEggs(c *gin.Context) {
	var in records.EggsInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.UpdateEggs(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteEggs handles DELETE /api/eggs/:id.
func (h *Handler) DeleteEggs(c *gin.Context) {
	h.deleted(c, h.svc.Records.DeleteEggs(c.Request.Context(), identity(c), c.Param("id")))
}

// ListMortality handles GET /api/mortality.
func (h *Handler) ListMortality(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	rows, err := h.svc.Records.ListMortality(c.Request.Context(), identity(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RecordMortality handles POST /api/mortality.
func (h *Handler) RecordMortality(c *gin.Context) {
	var in records.MortalityInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.RecordMortality(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateMortality handles PUT /api/mortality/:id.
func (h *Handler) UpdateMortality(c *gin.Context) {
	var in records.MortalityInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.UpdateMortality(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteMortality handles DELETE /api/mortality/:id.
func (h *Handler) DeleteMortality(c *gin.Context) {
	h.deleted(c, h.svc.Records.DeleteMortality(c.Request.Context(), identity(c), c.Param("id")))
}

// ListFeedAllocations handles GET /api/feed/allocations.
func (h *Handler) ListFeedAllocations(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	rows, err := h.svc.Records.ListFeedAllocations(c.Request.Context(), identity(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// AllocateFeed handles POST /api/feed/allocations.
func (h *Handler) AllocateFeed(c *gin.Context) {
	var in records.FeedAllocationInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.AllocateFeed(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// DeleteFeedAllocation handles DELETE /api/feed/allocations/:id.
func (h *Handler) DeleteFeedAllocation(c *gin.Context) {
	h.deleted(c, h.svc.Records.DeleteFeedAllocation(c.Request.Context(), identity(c), c.Param("id")))
}

// ListFeedStock handles GET /api/feed/stock.
func (h *Handler) ListFeedStock(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	rows, err := h.svc.Records.ListFeedStock(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// AddFeedStock handles POST /api/feed/stock.
func (h *Handler) AddFeedStock(c *gin.Context) {
	var in records.FeedStockInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.AddFeedStock(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// DeleteFeedStock handles DELETE /api/feed/stock/:id.
func (h *Handler) DeleteFeedStock(c *gin.Context) {
	h.deleted(c, h.svc.Records.DeleteFeedStock(c.Request.Context(), identity(c), c.Param("id")))
}

// ListSales handles GET /api/sales.
func (h *Handler) ListSales(c *gin.Context) {
	f, ok := h.listFilter(c)
	if !ok {
		return
	}
	rows, err := h.svc.Records.ListSales(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RecordSale handles POST /api/sales.
func (h *Handler) RecordSale(c *gin.Context) {
	var in records.SaleInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.RecordSale(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateSale handles PUT /api/sales/:id.
func (h *Handler) UpdateSale(c *gin.Context) {
	var in records.SaleInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.UpdateSale(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteSale handles DELETE /api/sales/:id.
func (h *Handler) DeleteSale(c *gin.Context) {
	h.deleted(c, h.svc.Records.DeleteSale(c.Request.Context(), identity(c), c.Param("id")))
}

// ListTasks handles GET /api/tasks.
func (h *Handler) ListTasks(c *gin.Context) {
	rows, err := h.svc.Records.ListTasks(c.Request.Context(), identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(c *gin.Context) {
	var in records.TaskInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.CreateTask(c.Request.Context(), identity(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateTask handles PUT /api/tasks/:id.
func (h *Handler) UpdateTask(c *gin.Context) {
	var in records.TaskInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.UpdateTask(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status.
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	var in records.TaskStatusInput
	if !h.bind(c, &in) {
		return
	}
	row, err := h.svc.Records.UpdateTaskStatus(c.Request.Context(), identity(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *Handler) DeleteTask(c *gin.Context) {
	h.deleted(c, h.svc.Records.DeleteTask(c.Request.Context(), identity(c), c.Param("id")))
}

func (h *Handler) deleted(c *gin.Context, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
