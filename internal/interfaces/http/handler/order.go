package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/onlinekart/backend/internal/application/order"
	"github.com/onlinekart/backend/internal/infrastructure/invoice"
	"github.com/onlinekart/backend/internal/interfaces/http/middleware"
)

// InvoiceGenerator renders an order invoice as a PDF document
type InvoiceGenerator interface {
	Generate(ctx context.Context, data *orderapp.InvoiceData) ([]byte, error)
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	BaseHandler
	orderService     *orderapp.OrderService
	invoiceGenerator InvoiceGenerator
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *orderapp.OrderService, invoiceGenerator InvoiceGenerator) *OrderHandler {
	return &OrderHandler{
		orderService:     orderService,
		invoiceGenerator: invoiceGenerator,
	}
}

// List godoc
// @Summary      List orders
// @Description  Paginated list of the authenticated user's orders, newest first
// @Tags         orders
// @Produce      json
// @Param        status query string false "Status filter" Enums(pending, paid, shipped, delivered, cancelled)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/ [get]
func (h *OrderHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var filter orderapp.OrderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	orders, total, err := h.orderService.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	h.SuccessWithMeta(c, orders, total, page, pageSize)
}

// Get godoc
// @Summary      Get an order
// @Description  Fetch a single order. Users see their own orders; staff see all.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/ [get]
func (h *OrderHandler) Get(c *gin.Context) {
	userID, orderID, ok := h.bindOrderRequest(c)
	if !ok {
		return
	}

	result, err := h.orderService.GetForUser(c.Request.Context(), userID, isStaff(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Invoice godoc
// @Summary      Download an order invoice
// @Description  Render the order invoice as a PDF document
// @Tags         orders
// @Produce      application/pdf
// @Param        id path string true "Order ID"
// @Success      200 {file} binary
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/invoice/ [get]
func (h *OrderHandler) Invoice(c *gin.Context) {
	userID, orderID, ok := h.bindOrderRequest(c)
	if !ok {
		return
	}

	data, err := h.orderService.GetInvoice(c.Request.Context(), userID, isStaff(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	pdf, err := h.invoiceGenerator.Generate(c.Request.Context(), data)
	if err != nil {
		h.InternalError(c, "Failed to render invoice")
		return
	}

	filename := fmt.Sprintf("%s.pdf", invoice.InvoiceNumber(data))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Ship godoc
// @Summary      Mark an order shipped
// @Description  Staff only. Transitions a paid order to shipped.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/ship/ [post]
func (h *OrderHandler) Ship(c *gin.Context) {
	_, orderID, ok := h.bindOrderRequest(c)
	if !ok {
		return
	}

	result, err := h.orderService.Ship(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Deliver godoc
// @Summary      Mark an order delivered
// @Description  Staff only. Transitions a shipped order to delivered.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/deliver/ [post]
func (h *OrderHandler) Deliver(c *gin.Context) {
	_, orderID, ok := h.bindOrderRequest(c)
	if !ok {
		return
	}

	result, err := h.orderService.Deliver(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel godoc
// @Summary      Cancel an order
// @Description  Staff only. Cancels a pending or paid order and restores product stock.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} APIResponse[orderapp.OrderResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/cancel/ [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, orderID, ok := h.bindOrderRequest(c)
	if !ok {
		return
	}

	result, err := h.orderService.Cancel(c.Request.Context(), userID, isStaff(c), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// bindOrderRequest extracts the authenticated user and the order ID path param
func (h *OrderHandler) bindOrderRequest(c *gin.Context) (userID, orderID uuid.UUID, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	orderID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, orderID, true
}
