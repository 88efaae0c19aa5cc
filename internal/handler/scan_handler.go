package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/service"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

// ScanHandler resolves scanned codes into students.
type ScanHandler struct {
	resolver *service.ResolverService
	queue    *service.QueueService
}

// NewScanHandler creates a new handler.
func NewScanHandler(resolver *service.ResolverService, queue *service.QueueService) *ScanHandler {
	return &ScanHandler{resolver: resolver, queue: queue}
}

type scanRequest struct {
	Code    string `json:"code" binding:"required"`
	Enqueue bool   `json:"enqueue"`
}

// Resolve godoc
// @Summary Resolve a scanned code
// @Description Resolve a barcode, admission number or student id into a student with their latest fee record, optionally queueing them on the till
// @Tags Scanning
// @Accept json
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Param payload body scanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scan [post]
func (h *ScanHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "scan code required"))
		return
	}

	resolved, err := h.resolver.Resolve(c.Request.Context(), claims.TenantID, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !req.Enqueue {
		response.JSON(c, http.StatusOK, resolved, nil)
		return
	}

	snapshot, err := h.queue.Enqueue(tillFromContext(c), resolved)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": resolved, "queue": snapshot}, nil)
}
