package routes

import (
	"backoffice-service/controllers"
	"backoffice-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterCategoryRoutes sets up the category tree routes. Reads are public;
// writes require admin.
func RegisterCategoryRoutes(r *gin.Engine, cc *controllers.CategoryController, admin gin.HandlerFunc) {
	categories := r.Group("/categories")
	categories.GET("", cc.GetCategories)
	categories.GET("/slug/:slug", cc.GetCategoryBySlug)
	categories.GET("/:id", cc.GetCategory)

	protected := categories.Group("")
	protected.Use(admin)
	protected.POST("", cc.CreateCategory)
	protected.POST("/bulk-delete", cc.BulkDeleteCategories)
	protected.PATCH("/:id", cc.UpdateCategory)
	protected.DELETE("/:id", cc.DeleteCategory)
}

func RegisterProductRoutes(r *gin.Engine, pc *controllers.ProductController, admin gin.HandlerFunc) {
	products := r.Group("/products")
	products.GET("", pc.GetProducts)
	products.GET("/:id", pc.GetProduct)

	protected := products.Group("")
	protected.Use(admin)
	protected.POST("", pc.CreateProduct)
	protected.POST("/bulk-delete", pc.BulkDeleteProducts)
	protected.DELETE("/:id", pc.DeleteProduct)
}

func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware())
	payments.POST("", pc.CreatePayment)
	payments.POST("/:method/:transaction_id/confirm", pc.ConfirmPayment)
	payments.POST("/:method/:transaction_id/cancel", pc.CancelPayment)
	payments.GET("/order/:order_id", pc.GetOrderPayments)
	payments.GET("/:id", pc.GetPayment)

	// Stripe webhook (no auth, signature-verified)
	r.POST("/stripe/webhook", pc.StripeWebhook)
}
