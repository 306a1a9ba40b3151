package sales

import (
	"net/http"
	"strconv"

	"raffle/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// ListSales returns the most recent ledger rows, newest first
func (c *Controller) ListSales(ctx *gin.Context) {
	limit := DefaultListLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid limit", nil, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sales, err := c.service.ListRecent(ctx.Request.Context(), limit)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list sales", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Sales retrieved successfully", sales, nil)
}
