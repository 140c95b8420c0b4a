package controllers

import (
	"net/http"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/gin-gonic/gin"
)

// PaymentController handles payment initiation and gateway callbacks.
type PaymentController struct {
	payments services.PaymentService
	callback services.CallbackService
}

func NewPaymentController(payments services.PaymentService, callback services.CallbackService) *PaymentController {
	return &PaymentController{payments: payments, callback: callback}
}

// Initiate handles POST /payments/orders/:id/initiate.
func (pc *PaymentController) Initiate(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := pc.payments.Initiate(c.Request.Context(), userID, orderID, c.ClientIP())
	if err != nil {
		fail(c, "payment_initiate", err)
		return
	}
	succeed("payment_initiate")
	c.JSON(http.StatusOK, result)
}

// GetPayment handles GET /payments/orders/:id.
func (pc *PaymentController) GetPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := pc.payments.GetPayment(c.Request.Context(), userID, orderID)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Callback handles POST /payments/paytr/callback. The gateway only treats the
// literal acknowledgement as delivered; every other response is retried.
func (pc *PaymentController) Callback(c *gin.Context) {
	var n models.CallbackNotification
	if err := c.ShouldBind(&n); err != nil {
		badRequest(c, err)
		return
	}

	n.Raw = make(map[string]any, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			n.Raw[key] = values[0]
		}
	}

	ack, err := pc.callback.HandleCallback(c.Request.Context(), &n)
	if err != nil {
		fail(c, "payment_callback", err)
		return
	}
	succeed("payment_callback")
	c.String(http.StatusOK, ack)
}
