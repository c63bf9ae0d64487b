package service

import (
	"strings"
	"time"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// commissionTransitions 佣金状态机
// paid 只能由 approved 进入；cancelled/refunded 为终态。
var commissionTransitions = map[string][]string{
	constants.CommissionStatusPending: {
		constants.CommissionStatusApproved,
		constants.CommissionStatusDisputed,
		constants.CommissionStatusCancelled,
		constants.CommissionStatusRefunded,
	},
	constants.CommissionStatusApproved: {
		constants.CommissionStatusPaid,
		constants.CommissionStatusDisputed,
		constants.CommissionStatusCancelled,
		constants.CommissionStatusRefunded,
	},
	constants.CommissionStatusDisputed: {
		constants.CommissionStatusApproved,
		constants.CommissionStatusCancelled,
	},
	constants.CommissionStatusPaid: {
		constants.CommissionStatusRefunded,
	},
}

func isCommissionTransitionAllowed(from, to string) bool {
	for _, allowed := range commissionTransitions[strings.TrimSpace(from)] {
		if allowed == strings.TrimSpace(to) {
			return true
		}
	}
	return false
}

// ComputeCommissionAmounts 计算佣金三元组
// percent 类型的 value 为小数比例（0.20 即 20%），flat 类型直接取固定金额。
func ComputeCommissionAmounts(orderTotal decimal.Decimal, commissionType string, value, feeRate decimal.Decimal) (gross, fee, net decimal.Decimal) {
	switch commissionType {
	case constants.CommissionTypeFlat:
		gross = value.Round(2)
	default:
		gross = orderTotal.Mul(value).Round(2)
	}
	if gross.LessThan(decimal.Zero) {
		gross = decimal.Zero
	}
	fee = gross.Mul(feeRate).Round(2)
	net = gross.Sub(fee).Round(2)
	return gross, fee, net
}

// CommissionService 佣金业务服务
type CommissionService struct {
	repo           repository.CommissionRepository
	settingService *SettingService
}

// NewCommissionService 创建佣金服务
func NewCommissionService(repo repository.CommissionRepository, settingService *SettingService) *CommissionService {
	return &CommissionService{repo: repo, settingService: settingService}
}

// MintForConversionTx 在事务内为已归因转化生成佣金
// conversion_id 唯一索引兜底并发：撞索引时返回既有记录。
func (s *CommissionService) MintForConversionTx(
	tx *gorm.DB,
	conversion *models.Conversion,
	attribution *models.Attribution,
	link *models.TrackingLink,
) (*models.Commission, error) {
	if conversion == nil || conversion.ID == 0 || attribution == nil || link == nil {
		return nil, nil
	}

	repoTx := s.repo.WithTx(tx)
	existing, err := repoTx.GetCommissionByConversion(conversion.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	setting, err := s.settingService.GetAttributionSetting()
	if err != nil {
		return nil, err
	}
	feeRate := decimal.NewFromFloat(setting.PlatformFeeRate)

	orderTotal := conversion.Total.Decimal.Round(2)
	commissionType := strings.TrimSpace(link.Program.CommissionType)
	if commissionType == "" {
		commissionType = constants.CommissionTypePercent
	}
	commissionValue := link.Program.CommissionValue.Decimal
	gross, fee, net := ComputeCommissionAmounts(orderTotal, commissionType, commissionValue, feeRate)

	attributionID := attribution.ID
	commission := &models.Commission{
		ConversionID:    conversion.ID,
		AttributionID:   &attributionID,
		InfluencerID:    link.InfluencerID,
		ProgramID:       link.ProgramID,
		OrderAmount:     models.NewMoneyFromDecimal(orderTotal),
		CommissionType:  commissionType,
		CommissionValue: models.NewMoneyFromDecimal(commissionValue),
		GrossAmount:     models.NewMoneyFromDecimal(gross),
		PlatformFeeRate: models.NewMoneyFromDecimal(feeRate),
		PlatformFee:     models.NewMoneyFromDecimal(fee),
		NetAmount:       models.NewMoneyFromDecimal(net),
		Status:          constants.CommissionStatusPending,
	}
	if err := repoTx.CreateCommission(commission); err != nil {
		if isUniqueViolation(err) {
			return repoTx.GetCommissionByConversion(conversion.ID)
		}
		return nil, err
	}

	logger.SW().Infow("commission_minted",
		"commission_id", commission.ID,
		"conversion_id", conversion.ID,
		"influencer_id", commission.InfluencerID,
		"gross_amount", gross.String(),
		"net_amount", net.String(),
	)
	return commission, nil
}

// UpdateStatus 变更佣金状态（状态机约束）
func (s *CommissionService) UpdateStatus(commissionID uint, nextStatus, reason string) (*models.Commission, error) {
	if commissionID == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	next := strings.TrimSpace(nextStatus)

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		commission, err := repoTx.GetCommissionByIDForUpdate(commissionID)
		if err != nil {
			return err
		}
		if commission == nil {
			return ErrNotFound
		}
		if commission.Status == next {
			return nil
		}
		if !isCommissionTransitionAllowed(commission.Status, next) {
			return ErrCommissionStatusInvalid
		}

		now := time.Now()
		commission.Status = next
		commission.UpdatedAt = now
		switch next {
		case constants.CommissionStatusApproved:
			commission.ApprovedAt = &now
			commission.InvalidReason = ""
		case constants.CommissionStatusPaid:
			commission.PaidAt = &now
		case constants.CommissionStatusDisputed,
			constants.CommissionStatusCancelled,
			constants.CommissionStatusRefunded:
			commission.InvalidReason = strings.TrimSpace(reason)
		}
		return repoTx.UpdateCommission(commission)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetCommissionByID(commissionID)
}

// Approve 审核通过佣金
func (s *CommissionService) Approve(commissionID uint) (*models.Commission, error) {
	return s.UpdateStatus(commissionID, constants.CommissionStatusApproved, "")
}

// Dispute 将佣金标记为争议中
func (s *CommissionService) Dispute(commissionID uint, reason string) (*models.Commission, error) {
	return s.UpdateStatus(commissionID, constants.CommissionStatusDisputed, reason)
}

// Cancel 取消佣金
func (s *CommissionService) Cancel(commissionID uint, reason string) (*models.Commission, error) {
	return s.UpdateStatus(commissionID, constants.CommissionStatusCancelled, reason)
}

// Refund 因订单退款回滚佣金
func (s *CommissionService) Refund(commissionID uint, reason string) (*models.Commission, error) {
	return s.UpdateStatus(commissionID, constants.CommissionStatusRefunded, reason)
}

// RefundByConversionTx 在事务内按转化回滚佣金（回调收到退款事件时使用）
func (s *CommissionService) RefundByConversionTx(tx *gorm.DB, conversionID uint, reason string) error {
	if conversionID == 0 || s.repo == nil {
		return nil
	}
	repoTx := s.repo.WithTx(tx)
	commission, err := repoTx.GetCommissionByConversion(conversionID)
	if err != nil {
		return err
	}
	if commission == nil {
		return nil
	}
	if commission.Status == constants.CommissionStatusRefunded ||
		commission.Status == constants.CommissionStatusCancelled {
		return nil
	}
	if !isCommissionTransitionAllowed(commission.Status, constants.CommissionStatusRefunded) {
		return ErrCommissionStatusInvalid
	}

	now := time.Now()
	commission.Status = constants.CommissionStatusRefunded
	commission.InvalidReason = strings.TrimSpace(reason)
	commission.UpdatedAt = now
	return repoTx.UpdateCommission(commission)
}

// GetByID 查询佣金详情
func (s *CommissionService) GetByID(commissionID uint) (*models.Commission, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	commission, err := s.repo.GetCommissionByID(commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrNotFound
	}
	return commission, nil
}

// List 查询佣金列表
func (s *CommissionService) List(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	if s.repo == nil {
		return []models.Commission{}, 0, nil
	}
	return s.repo.ListCommissions(filter)
}

// SummarizeInfluencer 按状态汇总达人佣金净额
func (s *CommissionService) SummarizeInfluencer(influencerID uint) (map[string]decimal.Decimal, error) {
	if s.repo == nil {
		return map[string]decimal.Decimal{}, nil
	}
	return s.repo.SumNetByInfluencerGrouped(influencerID)
}
