package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mhalvorsen/gigbook/backend/internal/middleware"
	"github.com/mhalvorsen/gigbook/backend/internal/services"
	"github.com/mhalvorsen/gigbook/backend/pkg/response"
)

type EarningsHandler struct {
	earningsService *services.EarningsService
}

func NewEarningsHandler(earnings *services.EarningsService) *EarningsHandler {
	return &EarningsHandler{earningsService: earnings}
}

// Summary returns the musician's earnings grouped by currency
// GET /api/earnings
func (h *EarningsHandler) Summary(c *gin.Context) {
	var req services.EarningsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	summary, err := h.earningsService.Summary(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, summary)
}

// Payouts returns what the organizer owes across their projects
// GET /api/earnings/payouts
func (h *EarningsHandler) Payouts(c *gin.Context) {
	var req services.EarningsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	summary, err := h.earningsService.Payouts(middleware.GetActor(c), &req)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, summary)
}
