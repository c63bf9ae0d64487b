package public

import (
	"errors"
	"strconv"

	handlershared "github.com/skinstack-core/internal/http/handlers/shared"
	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/repository"
	"github.com/skinstack-core/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMyClaimable 查询当前达人可结算金额
func (h *Handler) GetMyClaimable(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	summary, err := h.PayoutService.GetClaimableSummary(influencerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "influencer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch claimable summary", err)
		return
	}

	response.Success(c, summary)
}

// CreateMyPayout 申请结算批次
func (h *Handler) CreateMyPayout(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	batch, err := h.PayoutService.CreateBatch(influencerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "influencer not found", nil)
		case errors.Is(err, service.ErrPayoutBelowMinimum):
			respondError(c, response.CodeBadRequest, "claimable amount below minimum payout", nil)
		default:
			respondError(c, response.CodeInternal, "failed to create payout batch", err)
		}
		return
	}

	response.Success(c, batch)
}

// ListMyPayouts 查询当前达人的结算批次列表
func (h *Handler) ListMyPayouts(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	batches, total, err := h.PayoutService.List(repository.PayoutBatchListFilter{
		Page:         page,
		PageSize:     pageSize,
		InfluencerID: influencerID,
		Status:       c.Query("status"),
	})
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
