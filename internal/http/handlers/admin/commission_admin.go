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

// ListAdminCommissions 查询佣金列表
func (h *Handler) ListAdminCommissions(c *gin.Context) {
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

	filter := repository.CommissionListFilter{
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
	if programIDRaw := c.Query("program_id"); programIDRaw != "" {
		programID, err := strconv.ParseUint(programIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "program id invalid", nil)
			return
		}
		filter.ProgramID = uint(programID)
	}

	commissions, total, err := h.CommissionService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch commissions", err)
		return
	}

	response.SuccessWithPage(c, commissions, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetAdminCommission 获取佣金详情
func (h *Handler) GetAdminCommission(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "commission id invalid", nil)
		return
	}

	commission, err := h.CommissionService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "commission not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch commission", err)
		return
	}

	response.Success(c, commission)
}

// CommissionActionRequest 佣金状态操作请求
type CommissionActionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) transitionCommission(c *gin.Context, action string) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "commission id invalid", nil)
		return
	}

	var req CommissionActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "invalid request payload", err)
			return
		}
	}

	var commission interface{}
	switch action {
	case "approve":
		commission, err = h.CommissionService.Approve(uint(id))
	case "dispute":
		commission, err = h.CommissionService.Dispute(uint(id), req.Reason)
	case "cancel":
		commission, err = h.CommissionService.Cancel(uint(id), req.Reason)
	case "refund":
		commission, err = h.CommissionService.Refund(uint(id), req.Reason)
	default:
		respondError(c, response.CodeBadRequest, "action invalid", nil)
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "commission not found", nil)
		case errors.Is(err, service.ErrCommissionStatusInvalid):
			respondError(c, response.CodeBadRequest, "commission status transition not allowed", nil)
		default:
			respondError(c, response.CodeInternal, "failed to update commission", err)
		}
		return
	}

	response.Success(c, commission)
}

// ApproveCommission 审批佣金
func (h *Handler) ApproveCommission(c *gin.Context) {
	h.transitionCommission(c, "approve")
}

// DisputeCommission 将佣金标记为争议
func (h *Handler) DisputeCommission(c *gin.Context) {
	h.transitionCommission(c, "dispute")
}

// CancelCommission 取消佣金
func (h *Handler) CancelCommission(c *gin.Context) {
	h.transitionCommission(c, "cancel")
}

// RefundCommission 退款冲销佣金
func (h *Handler) RefundCommission(c *gin.Context) {
	h.transitionCommission(c, "refund")
}
