package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/repository"
	"github.com/skinstack-core/internal/service"

	"github.com/gin-gonic/gin"
)

// ListAdminConversions 查询转化列表
func (h *Handler) ListAdminConversions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	conversions, total, err := h.ConversionRepo.ListConversions(repository.ConversionListFilter{
		Page:        page,
		PageSize:    pageSize,
		Source:      strings.ToLower(strings.TrimSpace(c.Query("source"))),
		OrderID:     strings.TrimSpace(c.Query("order_id")),
		Status:      c.Query("status"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch conversions", err)
		return
	}

	response.SuccessWithPage(c, conversions, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) transitionConversion(c *gin.Context, action string) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "conversion id invalid", nil)
		return
	}

	var conversion interface{}
	switch action {
	case "approve":
		conversion, err = h.ConversionService.Approve(uint(id))
	case "reject":
		conversion, err = h.ConversionService.Reject(uint(id))
	default:
		respondError(c, response.CodeBadRequest, "action invalid", nil)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "conversion not found", nil)
		case errors.Is(err, service.ErrConversionStatusInvalid):
			respondError(c, response.CodeBadRequest, "conversion status transition not allowed", nil)
		default:
			respondError(c, response.CodeInternal, "failed to update conversion", err)
		}
		return
	}

	response.Success(c, conversion)
}

// ApproveConversion 复核通过转化
func (h *Handler) ApproveConversion(c *gin.Context) {
	h.transitionConversion(c, "approve")
}

// RejectConversion 复核驳回转化
func (h *Handler) RejectConversion(c *gin.Context) {
	h.transitionConversion(c, "reject")
}

// ListAdminWebhookEvents 查询回调事件列表
func (h *Handler) ListAdminWebhookEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	events, total, err := h.WebhookService.ListEvents(repository.WebhookEventListFilter{
		Page:        page,
		PageSize:    pageSize,
		Source:      strings.ToLower(strings.TrimSpace(c.Query("source"))),
		EventType:   strings.TrimSpace(c.Query("event_type")),
		FailedOnly:  c.Query("failed_only") == "true",
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch webhook events", err)
		return
	}

	response.SuccessWithPage(c, events, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
