package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"order_ledger/internal/repository"
	"order_ledger/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type APIHandler struct {
	pricingService services.PricingService
	orderService   services.OrderService
	archiveService services.ArchiveService
	ledgerService  services.LedgerService
	log            *zap.Logger
}

func NewAPIHandler(
	pricingService services.PricingService,
	orderService services.OrderService,
	archiveService services.ArchiveService,
	ledgerService services.LedgerService,
	log *zap.Logger,
) *APIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{
		pricingService: pricingService,
		orderService:   orderService,
		archiveService: archiveService,
		ledgerService:  ledgerService,
		log:            log,
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Pricing

func (h *APIHandler) QuotePrice(c *gin.Context) {
	var req services.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	quote, err := h.pricingService.ComputePrice(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, zap.String("variant", req.VariantName), zap.Int64p("supplier_id", req.SupplierID))
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *APIHandler) UpsertPriceConfig(c *gin.Context) {
	var req services.PriceConfigInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	cfg, err := h.pricingService.UpsertPriceConfig(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, zap.String("variant", req.VariantName))
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *APIHandler) AddSupplierCost(c *gin.Context) {
	var req services.SupplierCostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	cost, err := h.pricingService.AddSupplierCost(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, zap.String("variant", req.VariantName), zap.Int64("supplier_id", req.SupplierID))
		return
	}
	c.JSON(http.StatusCreated, cost)
}

// Orders

func (h *APIHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, zap.String("id_order", req.IDOrder), zap.Int64p("supplier_id", req.SupplyID), zap.Int64p("cost", req.Cost))
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *APIHandler) GetOrder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, zap.Int64("order_id", id))
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) ListOrders(c *gin.Context) {
	input := services.ListOrdersInput{
		Status: c.Query("status"),
		Search: c.Query("q"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("supply_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid supply_id"})
			return
		}
		input.SupplyID = &id
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders, "total": total})
}

func (h *APIHandler) UpdateOrder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.orderService.UpdateOrderWithFinance(c.Request.Context(), id, patch)
	if err != nil {
		h.respondError(c, err, zap.Int64("order_id", id))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) DeleteOrder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	// the override body is optional
	var override services.ArchiveOverride
	if err := c.ShouldBindJSON(&override); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.orderService.DeleteOrder(c.Request.Context(), id, override)
	if err != nil {
		h.respondError(c, err, zap.Int64("order_id", id))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Archives

func (h *APIHandler) ListArchived(c *gin.Context) {
	kind := repository.ArchiveKind(c.Param("kind"))
	rows, total, err := h.archiveService.ListArchived(c.Request.Context(), kind, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": total})
}

func (h *APIHandler) GetArchived(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	row, err := h.archiveService.GetArchived(c.Request.Context(), repository.ArchiveKind(c.Param("kind")), id)
	if err != nil {
		h.respondError(c, err, zap.Int64("order_id", id))
		return
	}
	c.JSON(http.StatusOK, row)
}

// Supplier ledger

func (h *APIHandler) ListCycles(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	cycles, err := h.ledgerService.ListCycles(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, zap.Int64("supplier_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cycles})
}

func (h *APIHandler) RecordPayment(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	cycle, err := h.ledgerService.RecordPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		h.respondError(c, err, zap.Int64("supplier_id", id))
		return
	}
	c.JSON(http.StatusOK, cycle)
}

func (h *APIHandler) idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
