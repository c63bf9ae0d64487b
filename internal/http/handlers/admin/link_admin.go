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

// ListAdminLinks 查询短链列表
func (h *Handler) ListAdminLinks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.LinkListFilter{
		Page:       page,
		PageSize:   pageSize,
		Slug:       strings.TrimSpace(c.Query("slug")),
		ActiveOnly: c.Query("active_only") == "true",
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

// GetAdminLinkStats 查询短链统计
func (h *Handler) GetAdminLinkStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "link id invalid", nil)
		return
	}

	stats, err := h.LinkService.GetStats(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "link not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch link stats", err)
		return
	}

	response.Success(c, stats)
}

// DeactivateAdminLink 停用短链
func (h *Handler) DeactivateAdminLink(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "link id invalid", nil)
		return
	}

	link, err := h.LinkService.Deactivate(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "link not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to deactivate link", err)
		return
	}

	response.Success(c, link)
}
