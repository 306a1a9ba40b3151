package sales

import "github.com/gin-gonic/gin"

// SetupSalesRoutes mounts the ledger under an already guarded admin group
func SetupSalesRoutes(admin *gin.RouterGroup, controller *Controller) {
	admin.GET("/sales", controller.ListSales) // GET /admin/sales?limit=50
}
