package routes

import (
	"net/http"

	"github.com/Badr070118/lupeti-project-sub000/common/auth"
	"github.com/Badr070118/lupeti-project-sub000/common/middleware"
	"github.com/Badr070118/lupeti-project-sub000/controllers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controllers bundles the HTTP handlers mounted by RegisterRoutes.
type Controllers struct {
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
	Admin    *controllers.AdminController
}

// Options carries the auth and throttling settings for the route groups.
type Options struct {
	Verifier          *auth.TokenVerifier
	TrustGatewayAuth  bool
	CallbackPerMinute int
	CheckoutPerMinute int
}

func RegisterRoutes(r *gin.Engine, ctrl Controllers, opts Options) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/products/:id/quote", ctrl.Products.Quote)

	// The gateway authenticates itself with the notification hash, not a JWT.
	r.POST("/payments/paytr/callback",
		middleware.RateLimitMiddleware(opts.CallbackPerMinute, opts.CallbackPerMinute),
		ctrl.Payments.Callback,
	)

	authRequired := middleware.AuthMiddleware(opts.Verifier, opts.TrustGatewayAuth)

	cartRoutes := r.Group("/cart")
	cartRoutes.Use(authRequired)
	{
		cartRoutes.GET("", ctrl.Cart.GetCart)
		cartRoutes.DELETE("", ctrl.Cart.ClearCart)
		cartRoutes.POST("/items", ctrl.Cart.AddItem)
		cartRoutes.PUT("/items/:product_id", ctrl.Cart.UpdateItem)
		cartRoutes.DELETE("/items/:product_id", ctrl.Cart.RemoveItem)
	}

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(authRequired)
	{
		orderRoutes.POST("/checkout",
			middleware.RateLimitMiddleware(opts.CheckoutPerMinute, opts.CheckoutPerMinute/2+1),
			ctrl.Orders.Checkout,
		)
		orderRoutes.GET("", ctrl.Orders.GetUserOrders)
		orderRoutes.GET("/:id", ctrl.Orders.GetOrderByID)
		orderRoutes.POST("/:id/cancel", ctrl.Orders.CancelOrder)
	}

	paymentRoutes := r.Group("/payments/orders")
	paymentRoutes.Use(authRequired)
	{
		paymentRoutes.POST("/:id/initiate", ctrl.Payments.Initiate)
		paymentRoutes.GET("/:id", ctrl.Payments.GetPayment)
	}

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(authRequired, middleware.AdminOnly())
	{
		adminRoutes.GET("/orders", ctrl.Admin.ListOrders)
		adminRoutes.PATCH("/orders/:id/status", ctrl.Admin.UpdateOrderStatus)
		adminRoutes.GET("/payments/:id/events", ctrl.Admin.ListPaymentEvents)
	}
}
