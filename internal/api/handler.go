package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pizza-platform/internal/service"
	"pizza-platform/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders *service.OrderService
	stream *StreamHandler
	users  UserLoader
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, stream *StreamHandler, users UserLoader) *Handler {
	return &Handler{
		orders: orders,
		stream: stream,
		users:  users,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(h.users))
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listMyOrders)
		v1.GET("/orders/admin", h.listAdminOrders)
		v1.GET("/orders/admin/stats", h.adminStats)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateStatus)
		v1.POST("/orders/:id/payment/confirm", h.confirmPayment)
		v1.GET("/events", h.stream.Stream)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder handles checkout. The advisory client total in the body is
// never trusted; a failure here is "could not place order", distinct from
// any payment failure.
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "could_not_place_order",
			"reason":  "invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err, "could_not_place_order")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// listMyOrders returns the authenticated customer's own orders.
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.orders.ListUserOrders(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, "list_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns one order to its owner or staff.
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), principal(c), orderID)
	if err != nil {
		respondError(c, err, "get_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// listAdminOrders is the staff listing with optional ?status= and ?limit=.
func (h *Handler) listAdminOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	orders, err := h.orders.ListAdminOrders(c.Request.Context(), principal(c), c.Query("status"), limit)
	if err != nil {
		respondError(c, err, "list_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// adminStats returns the dashboard aggregates.
func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.orders.AdminStats(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, "stats_failed")
		return
	}
	c.JSON(http.StatusOK, stats)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateStatus applies a staff-initiated status transition. Rejections carry
// the state machine's reason so staff see why, not a generic error.
func (h *Handler) updateStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status", "details": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), principal(c), orderID, req.Status)
	if err != nil {
		respondError(c, err, "status_update_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// confirmPayment is the integration point for the payment gateway's opaque
// "payment confirmed" callback, forwarded through the upstream gateway.
func (h *Handler) confirmPayment(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_order_id"})
		return
	}

	p := principal(c)
	if !p.IsStaff() && !ownsOrder(c, h, orderID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	order, err := h.orders.ConfirmPayment(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "payment_confirm_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func ownsOrder(c *gin.Context, h *Handler, orderID int64) bool {
	order, err := h.orders.GetOrder(c.Request.Context(), principal(c), orderID)
	return err == nil && order != nil
}

// respondError maps the service error taxonomy onto HTTP statuses with
// machine-readable reasons.
func respondError(c *gin.Context, err error, code string) {
	var (
		validation *service.ValidationError
		notFound   *service.NotFoundError
		authz      *service.AuthorizationError
		dependency *service.DependencyError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": code, "reason": validation.Reason})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": code, "reason": notFound.Error()})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"error": code, "reason": authz.Reason})
	case errors.As(err, &dependency):
		c.JSON(http.StatusInternalServerError, gin.H{"error": code, "reason": "a required backend is unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": code})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
