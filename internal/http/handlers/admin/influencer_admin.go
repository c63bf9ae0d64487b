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

// ListInfluencers 查询达人列表
func (h *Handler) ListInfluencers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	influencers, total, err := h.InfluencerService.List(repository.InfluencerListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch influencers", err)
		return
	}

	response.SuccessWithPage(c, influencers, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetInfluencer 获取达人详情
func (h *Handler) GetInfluencer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "influencer id invalid", nil)
		return
	}

	influencer, err := h.InfluencerService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "influencer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch influencer", err)
		return
	}

	response.Success(c, influencer)
}

// SetInfluencerStatusRequest 修改达人状态请求
type SetInfluencerStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetInfluencerStatus 启用/禁用达人
func (h *Handler) SetInfluencerStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "influencer id invalid", nil)
		return
	}

	var req SetInfluencerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	influencer, err := h.InfluencerService.SetStatus(uint(id), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, "status invalid", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "influencer not found", nil)
		default:
			respondError(c, response.CodeInternal, "failed to update influencer", err)
		}
		return
	}

	response.Success(c, influencer)
}
