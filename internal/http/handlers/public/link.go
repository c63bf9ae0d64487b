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

// CreateLinkRequest 创建推广短链请求
type CreateLinkRequest struct {
	ProgramID      uint    `json:"program_id" binding:"required"`
	ProductID      *uint   `json:"product_id"`
	CampaignID     string  `json:"campaign_id"`
	DestinationURL string  `json:"destination_url"`
	UTMSource      string  `json:"utm_source"`
	UTMMedium      string  `json:"utm_medium"`
	UTMCampaign    string  `json:"utm_campaign"`
}

// CreateMyLink 创建当前达人的推广短链
func (h *Handler) CreateMyLink(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	link, err := h.LinkService.CreateLink(service.LinkCreateInput{
		InfluencerID:   influencerID,
		ProgramID:      req.ProgramID,
		ProductID:      req.ProductID,
		CampaignID:     req.CampaignID,
		DestinationURL: req.DestinationURL,
		UTMSource:      req.UTMSource,
		UTMMedium:      req.UTMMedium,
		UTMCampaign:    req.UTMCampaign,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "program or product not found", nil)
		case errors.Is(err, service.ErrProgramDisabled):
			respondError(c, response.CodeBadRequest, "program disabled", nil)
		case errors.Is(err, service.ErrInfluencerDisabled):
			respondError(c, response.CodeUnauthorized, "account disabled", nil)
		case errors.Is(err, service.ErrSlugExhausted):
			respondError(c, response.CodeInternal, "failed to allocate slug", err)
		default:
			respondError(c, response.CodeInternal, "failed to create link", err)
		}
		return
	}

	response.Success(c, link)
}

// ListMyLinks 查询当前达人的短链列表
func (h *Handler) ListMyLinks(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	filter := repository.LinkListFilter{
		Page:         page,
		PageSize:     pageSize,
		InfluencerID: influencerID,
	}
	if programIDRaw := c.Query("program_id"); programIDRaw != "" {
		programID, err := strconv.ParseUint(programIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "program id invalid", nil)
			return
		}
		filter.ProgramID = uint(programID)
	}

	links, total, err := h.LinkService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch links", err)
		return
	}

	response.SuccessWithPage(c, links, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetMyLinkStats 查询当前达人某条短链的统计
func (h *Handler) GetMyLinkStats(c *gin.Context) {
	influencerID, ok := getInfluencerID(c)
	if !ok {
		return
	}

	linkID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || linkID == 0 {
		respondError(c, response.CodeBadRequest, "link id invalid", nil)
		return
	}

	link, err := h.LinkService.GetByID(uint(linkID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "link not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch link", err)
		return
	}
	if link.InfluencerID != influencerID {
		respondError(c, response.CodeNotFound, "link not found", nil)
		return
	}

	stats, err := h.LinkService.GetStats(link.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch link stats", err)
		return
	}

	response.Success(c, gin.H{
		"link":  link,
		"stats": stats,
	})
}
