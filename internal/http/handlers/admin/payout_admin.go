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

// ListAdminPayouts 查询结算批次列表
func (h *Handler) ListAdminPayouts(c *gin.Context) {
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

	filter := repository.PayoutBatchListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      c.Query("status"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	}
	if influencerIDRaw := c.Query("influencer_id"); influencerIDRaw != "" {
		influencerID, err := strconv.ParseUint(influencerIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "influencer id invalid", nil)
			return
		}
		filter.InfluencerID = uint(influencerID)
	}

	batches, total, err := h.PayoutService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch payout batches", err)
		return
	}

	response.SuccessWithPage(c, batches, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetAdminPayout 获取结算批次详情
func (h *Handler) GetAdminPayout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "payout batch id invalid", nil)
		return
	}

	batch, err := h.PayoutService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "payout batch not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch payout batch", err)
		return
	}

	commissions, err := h.PayoutService.ListBatchCommissions(batch.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch payout batch", err)
		return
	}

	response.Success(c, gin.H{
		"batch":       batch,
		"commissions": commissions,
	})
}

// ExecuteAdminPayout 执行结算批次打款
func (h *Handler) ExecuteAdminPayout(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "payout batch id invalid", nil)
		return
	}

	batch, err := h.PayoutService.ExecuteBatch(c.Request.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "payout batch not found", nil)
		case errors.Is(err, service.ErrPayoutBatchStatusInvalid):
			respondError(c, response.CodeBadRequest, "payout batch status transition not allowed", nil)
		case errors.Is(err, service.ErrPayoutChannelUnavailable):
			respondError(c, response.CodeInternal, "payout channel unavailable", err)
		default:
			respondError(c, response.CodeInternal, "failed to execute payout batch", err)
		}
		return
	}

	response.Success(c, batch)
}

// MarkAdminPayoutPaid 标记结算批次已打款
func (h *Handler) MarkAdminPayoutPaid(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "payout batch id invalid", nil)
		return
	}

	batch, err := h.PayoutService.MarkPaid(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "payout batch not found", nil)
		case errors.Is(err, service.ErrPayoutBatchStatusInvalid):
			respondError(c, response.CodeBadRequest, "payout batch status transition not allowed", nil)
		default:
			respondError(c, response.CodeInternal, "failed to update payout batch", err)
		}
		return
	}

	response.Success(c, batch)
}

// MarkPayoutFailedRequest 标记打款失败请求
type MarkPayoutFailedRequest struct {
	Reason string `json:"reason"`
}

// MarkAdminPayoutFailed 标记结算批次打款失败
func (h *Handler) MarkAdminPayoutFailed(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "payout batch id invalid", nil)
		return
	}

	var req MarkPayoutFailedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "invalid request payload", err)
			return
		}
	}

	batch, err := h.PayoutService.MarkFailed(uint(id), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "payout batch not found", nil)
		case errors.Is(err, service.ErrPayoutBatchStatusInvalid):
			respondError(c, response.CodeBadRequest, "payout batch status transition not allowed", nil)
		default:
			respondError(c, response.CodeInternal, "failed to update payout batch", err)
		}
		return
	}

	response.Success(c, batch)
}
