package repository

import (
	"errors"
	"strings"

	"github.com/skinstack-core/internal/models"

	"gorm.io/gorm"
)

// ProgramRepository 商家与联盟计划数据访问接口
type ProgramRepository interface {
	WithTx(tx *gorm.DB) ProgramRepository

	CreateMerchant(merchant *models.Merchant) error
	GetMerchantByID(id uint) (*models.Merchant, error)

	CreateProgram(program *models.Program) error
	UpdateProgram(program *models.Program) error
	GetProgramByID(id uint) (*models.Program, error)
	ListPrograms(filter ProgramListFilter) ([]models.Program, int64, error)

	CreateProduct(product *models.Product) error
	GetProductByID(id uint) (*models.Product, error)
}

// GormProgramRepository GORM 联盟计划仓储
type GormProgramRepository struct {
	db *gorm.DB
}

// NewProgramRepository 创建联盟计划仓储
func NewProgramRepository(db *gorm.DB) *GormProgramRepository {
	return &GormProgramRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProgramRepository) WithTx(tx *gorm.DB) ProgramRepository {
	if tx == nil {
		return r
	}
	return &GormProgramRepository{db: tx}
}

// CreateMerchant 创建商家
func (r *GormProgramRepository) CreateMerchant(merchant *models.Merchant) error {
	return r.db.Create(merchant).Error
}

// GetMerchantByID 按ID获取商家
func (r *GormProgramRepository) GetMerchantByID(id uint) (*models.Merchant, error) {
	if id == 0 {
		return nil, nil
	}
	var merchant models.Merchant
	if err := r.db.First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// CreateProgram 创建联盟计划
func (r *GormProgramRepository) CreateProgram(program *models.Program) error {
	return r.db.Create(program).Error
}

// UpdateProgram 更新联盟计划
func (r *GormProgramRepository) UpdateProgram(program *models.Program) error {
	return r.db.Save(program).Error
}

// GetProgramByID 按ID获取联盟计划
func (r *GormProgramRepository) GetProgramByID(id uint) (*models.Program, error) {
	if id == 0 {
		return nil, nil
	}
	var program models.Program
	if err := r.db.Preload("Merchant").First(&program, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &program, nil
}

// ListPrograms 查询联盟计划列表
func (r *GormProgramRepository) ListPrograms(filter ProgramListFilter) ([]models.Program, int64, error) {
	query := r.db.Model(&models.Program{}).Preload("Merchant")
	if filter.MerchantID != 0 {
		query = query.Where("programs.merchant_id = ?", filter.MerchantID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("programs.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		operator := likeOperator(r.db)
		query = query.
			Joins("LEFT JOIN merchants ON merchants.id = programs.merchant_id").
			Where("(programs.name "+operator+" ? OR merchants.name "+operator+" ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Program
	if err := query.Order("programs.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateProduct 创建商品
func (r *GormProgramRepository) CreateProduct(product *models.Product) error {
	return r.db.Create(product).Error
}

// GetProductByID 按ID获取商品
func (r *GormProgramRepository) GetProductByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
