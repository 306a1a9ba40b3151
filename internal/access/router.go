package access

import "github.com/gin-gonic/gin"

func SetupAccessRoutes(rg gin.IRoutes, controller *Controller) {
	rg.POST("/verify_password", controller.VerifyPassword)
	rg.GET("/public_key", controller.GetPublicKey)
}
