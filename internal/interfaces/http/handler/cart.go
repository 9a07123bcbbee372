package handler

import (
	"github.com/gin-gonic/gin"
	cartapp "github.com/onlinekart/backend/internal/application/cart"
	"github.com/onlinekart/backend/internal/interfaces/http/middleware"
)

// CartHandler handles shopping cart HTTP requests
type CartHandler struct {
	BaseHandler
	cartService *cartapp.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cartapp.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// Get godoc
// @Summary      Get the cart
// @Description  Return the authenticated user's cart with line subtotals
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/ [get]
func (h *CartHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := h.cartService.Get(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// AddItem godoc
// @Summary      Add a product to the cart
// @Description  Set the quantity of a product in the cart. Re-adding a product replaces its quantity.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.AddItemRequest true "Product and quantity"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/add_item/ [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req cartapp.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// RemoveItem godoc
// @Summary      Remove a product from the cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.RemoveItemRequest true "Product to remove"
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/remove_item/ [post]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req cartapp.RemoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// Clear godoc
// @Summary      Empty the cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} APIResponse[cartapp.CartResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/clear/ [post]
func (h *CartHandler) Clear(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := h.cartService.Clear(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, cart)
}

// Checkout godoc
// @Summary      Check out the cart
// @Description  Place an order from the cart contents. Stock is checked and deducted, prices are snapshotted and the cart is emptied, all in one transaction.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body cartapp.CheckoutRequest true "Shipping address"
// @Success      201 {object} APIResponse[order.OrderResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /cart/checkout/ [post]
func (h *CartHandler) Checkout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req cartapp.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	placedOrder, err := h.cartService.Checkout(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, placedOrder)
}
