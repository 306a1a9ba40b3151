package access

import (
	"errors"
	"net/http"

	"raffle/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
	log     *logger.Logger
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
		log:     logger.GetDefault(),
	}
}

// VerifyPassword answers {success} like the browser gate expects; a wrong
// password is not an HTTP error.
func (c *Controller) VerifyPassword(ctx *gin.Context) {
	var req VerifyPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, VerifyPasswordResponse{Success: false})
		return
	}

	resp, err := c.service.VerifyPassword(ctx.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			c.log.LogAccessDenied(ctx.Request.Context(), ctx.ClientIP())
			ctx.JSON(http.StatusOK, VerifyPasswordResponse{Success: false})
			return
		}
		c.log.LogHTTPError(ctx, err, http.StatusInternalServerError)
		ctx.JSON(http.StatusInternalServerError, VerifyPasswordResponse{Success: false})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) GetPublicKey(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, PublicKeyResponse{PublicKey: c.service.PublicKey()})
}
