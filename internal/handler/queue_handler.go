package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/service"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

// QueueHandler exposes the per-till payment queue.
type QueueHandler struct {
	queue *service.QueueService
}

// NewQueueHandler creates a new handler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// Snapshot godoc
// @Summary Current queue state
// @Tags Queue
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Success 200 {object} response.Envelope
// @Router /queue [get]
func (h *QueueHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.queue.Snapshot(tillFromContext(c)), nil)
}

// Select godoc
// @Summary Select a waiting student for processing
// @Description Promote the named waiting entry to processing with a fresh fee snapshot
// @Tags Queue
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /queue/{studentId}/select [post]
func (h *QueueHandler) Select(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entry, err := h.queue.Select(c.Request.Context(), claims.TenantID, tillFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Advance godoc
// @Summary Complete the current student and promote the next
// @Tags Queue
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Success 200 {object} response.Envelope
// @Router /queue/advance [post]
func (h *QueueHandler) Advance(c *gin.Context) {
	next := h.queue.Advance(tillFromContext(c))
	response.JSON(c, http.StatusOK, gin.H{"next": next}, nil)
}

// Release godoc
// @Summary Return the processing student to the waiting line
// @Tags Queue
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /queue/release [post]
func (h *QueueHandler) Release(c *gin.Context) {
	if err := h.queue.Release(tillFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Remove a waiting student from the queue
// @Tags Queue
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /queue/{studentId} [delete]
func (h *QueueHandler) Remove(c *gin.Context) {
	if err := h.queue.Remove(tillFromContext(c), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearCompleted godoc
// @Summary Drop completed entries from the queue
// @Tags Queue
// @Produce json
// @Param X-Till-ID header string false "Till identifier"
// @Success 200 {object} response.Envelope
// @Router /queue/completed [delete]
func (h *QueueHandler) ClearCompleted(c *gin.Context) {
	removed := h.queue.ClearCompleted(tillFromContext(c))
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}
