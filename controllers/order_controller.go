package controllers

import (
	"net/http"
	"strings"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/gin-gonic/gin"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// OrderController handles checkout and the customer's order endpoints.
type OrderController struct {
	checkout  services.CheckoutService
	orders    services.OrderService
	validator *RequestValidator
}

func NewOrderController(checkout services.CheckoutService, orders services.OrderService, validator *RequestValidator) *OrderController {
	return &OrderController{checkout: checkout, orders: orders, validator: validator}
}

// Checkout handles POST /orders/checkout. A replayed Idempotency-Key returns
// the original order with 200 instead of 201.
func (oc *OrderController) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := oc.validator.Struct(&req); err != nil {
		fail(c, "checkout", err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	order, replayed, err := oc.checkout.Checkout(c.Request.Context(), userID, req, key)
	if err != nil {
		fail(c, "checkout", err)
		return
	}

	if replayed {
		succeed("checkout_replay")
		c.JSON(http.StatusOK, gin.H{"order": order})
		return
	}
	succeed("checkout")
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// GetUserOrders handles GET /orders.
func (oc *OrderController) GetUserOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, limit, err := oc.validator.ParsePagination(c)
	if err != nil {
		fail(c, "", err)
		return
	}

	resp, err := oc.orders.GetUserOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrderByID handles GET /orders/:id.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := oc.orders.GetOrderByID(c.Request.Context(), userID, orderID)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder handles POST /orders/:id/cancel.
func (oc *OrderController) CancelOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := oc.orders.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		fail(c, "order_cancel", err)
		return
	}
	succeed("order_cancel")
	c.JSON(http.StatusOK, gin.H{"order": order})
}
