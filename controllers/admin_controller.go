package controllers

import (
	"net/http"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/gin-gonic/gin"
)

// AdminController exposes order management and the payment audit trail.
type AdminController struct {
	orders    services.OrderService
	payments  services.PaymentService
	validator *RequestValidator
}

func NewAdminController(orders services.OrderService, payments services.PaymentService, validator *RequestValidator) *AdminController {
	return &AdminController{orders: orders, payments: payments, validator: validator}
}

// ListOrders handles GET /admin/orders?status=&page=&limit=.
func (ac *AdminController) ListOrders(c *gin.Context) {
	page, limit, err := ac.validator.ParsePagination(c)
	if err != nil {
		fail(c, "", err)
		return
	}

	var filter models.OrderFilter
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			fail(c, "", apperrors.Validation(apperrors.CodeValidationFailed, "Unknown order status"))
			return
		}
		filter.Status = &status
	}

	resp, err := ac.orders.GetAllOrders(c.Request.Context(), filter, page, limit)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateOrderStatus handles PATCH /admin/orders/:id/status.
func (ac *AdminController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := ac.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		fail(c, "admin_status_update", err)
		return
	}
	succeed("admin_status_update")
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListPaymentEvents handles GET /admin/payments/:id/events.
func (ac *AdminController) ListPaymentEvents(c *gin.Context) {
	paymentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := ac.payments.ListEvents(c.Request.Context(), paymentID)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, details)
}
