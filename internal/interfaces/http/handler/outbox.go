package handler

import (
	"context"

	"github.com/erp/purchasing/internal/application/event"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxAdmin inspects the event outbox and requeues dead letters
type OutboxAdmin interface {
	ListDeadLetters(ctx context.Context, page, pageSize int) (shared.Paginated[event.OutboxEntryDTO], error)
	RetryDeadLetter(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error)
	RetryAllDeadLetters(ctx context.Context) (int64, error)
	GetStats(ctx context.Context) (*event.OutboxStatsDTO, error)
}

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox OutboxAdmin
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox OutboxAdmin) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// DeadLetterQuery is the paging of the dead letter list
type DeadLetterQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// RetryAllResponse reports how many dead letters were requeued
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// ListDeadLetters godoc
// @ID           listOutboxDeadLetters
// @Summary      List dead letter entries
// @Description  Paginated list of events whose delivery exhausted its retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/dead-letters [get]
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var query DeadLetterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.outbox.ListDeadLetters(c.Request.Context(), query.Page, query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// RetryDeadLetter godoc
// @ID           retryOutboxDeadLetter
// @Summary      Retry a dead letter entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox Entry ID" format(uuid)
// @Success      200 {object} APIResponse[event.OutboxEntryDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/dead-letters/{id}/retry [post]
func (h *OutboxHandler) RetryDeadLetter(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id", "entry ID")
	if !ok {
		return
	}

	entry, err := h.outbox.RetryDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAllDeadLetters godoc
// @ID           retryAllOutboxDeadLetters
// @Summary      Retry all dead letter entries
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[RetryAllResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/dead-letters/retry-all [post]
func (h *OutboxHandler) RetryAllDeadLetters(c *gin.Context) {
	count, err := h.outbox.RetryAllDeadLetters(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RetryAllResponse{Count: count})
}

// GetStats godoc
// @ID           getOutboxStats
// @Summary      Get outbox statistics
// @Description  Outbox entry counts per delivery status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} APIResponse[event.OutboxStatsDTO]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outbox.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
