package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/service"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

// FeeHandler exposes fee structures and fee assignment.
type FeeHandler struct {
	assignments *service.AssignmentService
}

// NewFeeHandler creates a new handler.
func NewFeeHandler(assignments *service.AssignmentService) *FeeHandler {
	return &FeeHandler{assignments: assignments}
}

// ListStructures godoc
// @Summary List active fee structure lines
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/structures [get]
func (h *FeeHandler) ListStructures(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	lines, err := h.assignments.ListStructures(c.Request.Context(), claims.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lines, nil)
}

// Assign godoc
// @Summary Assign fees to a student
// @Description Create a pending fee record from selected fee structure lines
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.AssignFeesRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/assign [post]
func (h *FeeHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AssignFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee assignment payload"))
		return
	}

	fee, err := h.assignments.Assign(c.Request.Context(), claims.TenantID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}
