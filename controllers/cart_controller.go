package controllers

import (
	"net/http"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/gin-gonic/gin"
)

// CartController handles HTTP requests for the caller's cart.
type CartController struct {
	cart services.CartService
}

func NewCartController(cart services.CartService) *CartController {
	return &CartController{cart: cart}
}

// GetCart handles GET /cart.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := cc.cart.GetCart(c.Request.Context(), userID)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// AddItem handles POST /cart/items.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := cc.cart.AddItem(c.Request.Context(), userID, req)
	if err != nil {
		fail(c, "cart_add", err)
		return
	}
	succeed("cart_add")
	c.JSON(http.StatusOK, view)
}

// UpdateItem handles PUT /cart/items/:product_id.
func (cc *CartController) UpdateItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}

	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := cc.cart.UpdateItem(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RemoveItem handles DELETE /cart/items/:product_id.
func (cc *CartController) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}

	view, err := cc.cart.RemoveItem(c.Request.Context(), userID, productID)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ClearCart handles DELETE /cart.
func (cc *CartController) ClearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := cc.cart.Clear(c.Request.Context(), userID); err != nil {
		fail(c, "", err)
		return
	}
	c.Status(http.StatusNoContent)
}
