package controllers

import (
	"net/http"

	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/gin-gonic/gin"
)

type ProductController struct {
	catalog services.CatalogService
}

func NewProductController(catalog services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Quote handles GET /products/:id/quote.
func (pc *ProductController) Quote(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	quote, err := pc.catalog.Quote(c.Request.Context(), id)
	if err != nil {
		fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
