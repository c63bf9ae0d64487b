package admin

import (
	"strconv"
	"strings"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/http/response"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateMerchantRequest 创建商家请求
type CreateMerchantRequest struct {
	Name            string `json:"name" binding:"required"`
	Website         string `json:"website"`
	IntegrationType string `json:"integration_type"`
}

// CreateMerchant 创建商家
func (h *Handler) CreateMerchant(c *gin.Context) {
	var req CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	merchant := &models.Merchant{
		Name:            strings.TrimSpace(req.Name),
		Website:         strings.TrimSpace(req.Website),
		IntegrationType: strings.ToLower(strings.TrimSpace(req.IntegrationType)),
	}
	if err := h.ProgramRepo.CreateMerchant(merchant); err != nil {
		respondError(c, response.CodeInternal, "failed to create merchant", err)
		return
	}

	response.Success(c, merchant)
}

// GetMerchant 获取商家详情
func (h *Handler) GetMerchant(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "merchant id invalid", nil)
		return
	}

	merchant, err := h.ProgramRepo.GetMerchantByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch merchant", err)
		return
	}
	if merchant == nil {
		respondError(c, response.CodeNotFound, "merchant not found", nil)
		return
	}

	response.Success(c, merchant)
}

// ProgramRequest 联盟计划创建/更新请求
type ProgramRequest struct {
	MerchantID       uint    `json:"merchant_id"`
	Name             string  `json:"name"`
	Network          string  `json:"network"`
	CommissionType   string  `json:"commission_type"`
	CommissionValue  float64 `json:"commission_value"`
	CookieWindowDays int     `json:"cookie_window_days"`
	Status           string  `json:"status"`
}

func validateProgramRequest(req ProgramRequest) string {
	if req.MerchantID == 0 {
		return "merchant id required"
	}
	if strings.TrimSpace(req.Name) == "" {
		return "program name required"
	}
	switch strings.ToLower(strings.TrimSpace(req.Network)) {
	case constants.WebhookSourceRefersion, constants.WebhookSourceShopify,
		constants.WebhookSourceImpact, constants.WebhookSourceLevanta:
	default:
		return "network invalid"
	}
	switch strings.ToLower(strings.TrimSpace(req.CommissionType)) {
	case constants.CommissionTypePercent:
		if req.CommissionValue < 0 || req.CommissionValue > 1 {
			return "commission value must be between 0 and 1"
		}
	case constants.CommissionTypeFlat:
		if req.CommissionValue < 0 {
			return "commission value must not be negative"
		}
	default:
		return "commission type invalid"
	}
	if req.CookieWindowDays < 1 || req.CookieWindowDays > 365 {
		return "cookie window days must be between 1 and 365"
	}
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case constants.ProgramStatusActive, constants.ProgramStatusDisabled:
	default:
		return "status invalid"
	}
	return ""
}

// CreateProgram 创建联盟计划
func (h *Handler) CreateProgram(c *gin.Context) {
	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}
	if req.Status == "" {
		req.Status = constants.ProgramStatusActive
	}
	if req.CookieWindowDays == 0 {
		req.CookieWindowDays = 7
	}
	if msg := validateProgramRequest(req); msg != "" {
		respondError(c, response.CodeBadRequest, msg, nil)
		return
	}

	merchant, err := h.ProgramRepo.GetMerchantByID(req.MerchantID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to create program", err)
		return
	}
	if merchant == nil {
		respondError(c, response.CodeNotFound, "merchant not found", nil)
		return
	}

	program := &models.Program{
		MerchantID:       req.MerchantID,
		Name:             strings.TrimSpace(req.Name),
		Network:          strings.ToLower(strings.TrimSpace(req.Network)),
		CommissionType:   strings.ToLower(strings.TrimSpace(req.CommissionType)),
		CommissionValue:  models.Money{Decimal: decimal.NewFromFloat(req.CommissionValue)},
		CookieWindowDays: req.CookieWindowDays,
		Status:           strings.ToLower(strings.TrimSpace(req.Status)),
	}
	if err := h.ProgramRepo.CreateProgram(program); err != nil {
		respondError(c, response.CodeInternal, "failed to create program", err)
		return
	}

	response.Success(c, program)
}

// UpdateProgram 更新联盟计划
func (h *Handler) UpdateProgram(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "program id invalid", nil)
		return
	}

	program, err := h.ProgramRepo.GetProgramByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "failed to update program", err)
		return
	}
	if program == nil {
		respondError(c, response.CodeNotFound, "program not found", nil)
		return
	}

	var req ProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}
	if req.MerchantID == 0 {
		req.MerchantID = program.MerchantID
	}
	if msg := validateProgramRequest(req); msg != "" {
		respondError(c, response.CodeBadRequest, msg, nil)
		return
	}

	program.Name = strings.TrimSpace(req.Name)
	program.Network = strings.ToLower(strings.TrimSpace(req.Network))
	program.CommissionType = strings.ToLower(strings.TrimSpace(req.CommissionType))
	program.CommissionValue = models.Money{Decimal: decimal.NewFromFloat(req.CommissionValue)}
	program.CookieWindowDays = req.CookieWindowDays
	program.Status = strings.ToLower(strings.TrimSpace(req.Status))

	if err := h.ProgramRepo.UpdateProgram(program); err != nil {
		respondError(c, response.CodeInternal, "failed to update program", err)
		return
	}

	response.Success(c, program)
}

// GetProgram 获取联盟计划详情
func (h *Handler) GetProgram(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "program id invalid", nil)
		return
	}

	program, err := h.ProgramRepo.GetProgramByID(uint(id))
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch program", err)
		return
	}
	if program == nil {
		respondError(c, response.CodeNotFound, "program not found", nil)
		return
	}

	response.Success(c, program)
}

// ListPrograms 查询联盟计划列表
func (h *Handler) ListPrograms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ProgramListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	}
	if merchantIDRaw := c.Query("merchant_id"); merchantIDRaw != "" {
		merchantID, err := strconv.ParseUint(merchantIDRaw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "merchant id invalid", nil)
			return
		}
		filter.MerchantID = uint(merchantID)
	}

	programs, total, err := h.ProgramRepo.ListPrograms(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch programs", err)
		return
	}

	response.SuccessWithPage(c, programs, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	MerchantID uint   `json:"merchant_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	URL        string `json:"url"`
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	merchant, err := h.ProgramRepo.GetMerchantByID(req.MerchantID)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to create product", err)
		return
	}
	if merchant == nil {
		respondError(c, response.CodeNotFound, "merchant not found", nil)
		return
	}

	product := &models.Product{
		MerchantID: req.MerchantID,
		Name:       strings.TrimSpace(req.Name),
		URL:        strings.TrimSpace(req.URL),
	}
	if err := h.ProgramRepo.CreateProduct(product); err != nil {
		respondError(c, response.CodeInternal, "failed to create product", err)
		return
	}

	response.Success(c, product)
}
