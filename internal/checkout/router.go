package checkout

import (
	"github.com/gin-gonic/gin"
)

// SetupCheckoutRoutes registers the buyer facing endpoints. paymentMiddleware
// wraps the two endpoints that create payments.
func SetupCheckoutRoutes(rg gin.IRoutes, controller *Controller, paymentMiddleware ...gin.HandlerFunc) {
	rg.GET("/available_numbers", controller.GetAvailableNumbers)
	rg.POST("/reserve_numbers", controller.ReserveNumbers)

	rg.POST("/process_payment", withMiddleware(paymentMiddleware, controller.ProcessPayment)...)
	rg.POST("/process_pix_payment", withMiddleware(paymentMiddleware, controller.ProcessPixPayment)...)

	rg.GET("/payment_status/:paymentId", controller.GetPaymentStatus)
}

// SetupOperatorRoutes registers the guarded endpoints; the caller installs
// the auth middleware on rg.
func SetupOperatorRoutes(rg gin.IRoutes, controller *Controller) {
	rg.POST("/reset_numbers", controller.ResetNumbers) // POST /reset_numbers
	rg.GET("/admin/stats", controller.GetOverview)     // GET /admin/stats
}

func withMiddleware(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	return append(handlers, handler)
}
