package service

import (
	"strings"
	"time"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"gorm.io/gorm"
)

// conversionTransitions 转化状态机
// approved/rejected 由后台复核触发；refunded 来自来源方退款事件，为终态。
var conversionTransitions = map[string][]string{
	constants.ConversionStatusPending: {
		constants.ConversionStatusApproved,
		constants.ConversionStatusRejected,
		constants.ConversionStatusRefunded,
	},
	constants.ConversionStatusApproved: {
		constants.ConversionStatusRefunded,
	},
	constants.ConversionStatusRejected: {
		constants.ConversionStatusRefunded,
	},
}

func isConversionTransitionAllowed(from, to string) bool {
	for _, allowed := range conversionTransitions[strings.TrimSpace(from)] {
		if allowed == strings.TrimSpace(to) {
			return true
		}
	}
	return false
}

// ConversionService 转化台账业务服务
type ConversionService struct {
	repo repository.ConversionRepository
}

// NewConversionService 创建转化服务
func NewConversionService(repo repository.ConversionRepository) *ConversionService {
	return &ConversionService{repo: repo}
}

// UpdateStatus 变更转化状态（状态机约束）
func (s *ConversionService) UpdateStatus(conversionID uint, nextStatus string) (*models.Conversion, error) {
	if conversionID == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	next := strings.TrimSpace(nextStatus)

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		conversion, err := repoTx.GetConversionByIDForUpdate(conversionID)
		if err != nil {
			return err
		}
		if conversion == nil {
			return ErrNotFound
		}
		if conversion.Status == next {
			return nil
		}
		if !isConversionTransitionAllowed(conversion.Status, next) {
			return ErrConversionStatusInvalid
		}

		conversion.Status = next
		conversion.UpdatedAt = time.Now()
		return repoTx.UpdateConversion(conversion)
	})
	if err != nil {
		return nil, err
	}

	conversion, err := s.repo.GetConversionByID(conversionID)
	if err != nil {
		return nil, err
	}
	logger.SW().Infow("conversion_status_updated",
		"conversion_id", conversionID,
		"status", next,
	)
	return conversion, nil
}

// Approve 复核通过转化
func (s *ConversionService) Approve(conversionID uint) (*models.Conversion, error) {
	return s.UpdateStatus(conversionID, constants.ConversionStatusApproved)
}

// Reject 复核驳回转化
func (s *ConversionService) Reject(conversionID uint) (*models.Conversion, error) {
	return s.UpdateStatus(conversionID, constants.ConversionStatusRejected)
}

// GetByID 查询转化详情
func (s *ConversionService) GetByID(conversionID uint) (*models.Conversion, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	conversion, err := s.repo.GetConversionByID(conversionID)
	if err != nil {
		return nil, err
	}
	if conversion == nil {
		return nil, ErrNotFound
	}
	return conversion, nil
}

// List 查询转化列表
func (s *ConversionService) List(filter repository.ConversionListFilter) ([]models.Conversion, int64, error) {
	if s.repo == nil {
		return []models.Conversion{}, 0, nil
	}
	return s.repo.ListConversions(filter)
}
