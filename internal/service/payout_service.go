package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skinstack-core/internal/constants"
	"github.com/skinstack-core/internal/logger"
	"github.com/skinstack-core/internal/models"
	"github.com/skinstack-core/internal/payout"
	"github.com/skinstack-core/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutService 结算批次业务服务
// 创建批次时在事务内锁定可结算佣金，保证同一笔佣金只进一个批次。
type PayoutService struct {
	payoutRepo     repository.PayoutRepository
	commissionRepo repository.CommissionRepository
	influencerRepo repository.InfluencerRepository
	settingService *SettingService
	provider       payout.Provider
}

// NewPayoutService 创建结算服务
func NewPayoutService(
	payoutRepo repository.PayoutRepository,
	commissionRepo repository.CommissionRepository,
	influencerRepo repository.InfluencerRepository,
	settingService *SettingService,
	provider payout.Provider,
) *PayoutService {
	return &PayoutService{
		payoutRepo:     payoutRepo,
		commissionRepo: commissionRepo,
		influencerRepo: influencerRepo,
		settingService: settingService,
		provider:       provider,
	}
}

// ClaimableSummary 达人可结算概况
type ClaimableSummary struct {
	InfluencerID    uint            `json:"influencer_id"`
	ClaimableAmount decimal.Decimal `json:"claimable_amount"`
	ClaimableCount  int             `json:"claimable_count"`
	MinPayoutAmount decimal.Decimal `json:"min_payout_amount"`
	Eligible        bool            `json:"eligible"`
}

// GetClaimableSummary 查询达人当前可结算金额
func (s *PayoutService) GetClaimableSummary(influencerID uint) (*ClaimableSummary, error) {
	if influencerID == 0 {
		return nil, ErrNotFound
	}
	setting, err := s.settingService.GetAttributionSetting()
	if err != nil {
		return nil, err
	}
	minPayout := decimal.NewFromFloat(setting.MinPayoutAmount)

	total, err := s.commissionRepo.SumNetByInfluencer(
		influencerID, []string{constants.CommissionStatusApproved}, true)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.commissionRepo.ListCommissions(repository.CommissionListFilter{
		InfluencerID:  influencerID,
		Status:        constants.CommissionStatusApproved,
		UnclaimedOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return &ClaimableSummary{
		InfluencerID:    influencerID,
		ClaimableAmount: total,
		ClaimableCount:  len(rows),
		MinPayoutAmount: minPayout,
		Eligible:        total.GreaterThanOrEqual(minPayout),
	}, nil
}

// CreateBatch 为达人创建结算批次
// 在事务内 FOR UPDATE 锁定全部已审核未入批佣金，净额之和低于最低结算额时拒绝。
func (s *PayoutService) CreateBatch(influencerID uint) (*models.PayoutBatch, error) {
	if influencerID == 0 {
		return nil, ErrNotFound
	}
	influencer, err := s.influencerRepo.GetByID(influencerID)
	if err != nil {
		return nil, err
	}
	if influencer == nil {
		return nil, ErrNotFound
	}
	if influencer.Status != constants.InfluencerStatusActive {
		return nil, ErrInfluencerDisabled
	}

	setting, err := s.settingService.GetAttributionSetting()
	if err != nil {
		return nil, err
	}
	minPayout := decimal.NewFromFloat(setting.MinPayoutAmount)

	channel := constants.PayoutChannelManual
	if s.provider != nil {
		channel = s.provider.Name()
	}

	var batch *models.PayoutBatch
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		commissionTx := s.commissionRepo.WithTx(tx)
		claimable, err := commissionTx.ListClaimableCommissionsForUpdate(influencerID)
		if err != nil {
			return err
		}
		if len(claimable) == 0 {
			return ErrPayoutBelowMinimum
		}

		total := decimal.Zero
		ids := make([]uint, 0, len(claimable))
		for _, commission := range claimable {
			total = total.Add(commission.NetAmount.Decimal)
			ids = append(ids, commission.ID)
		}
		total = total.Round(2)
		if total.LessThan(minPayout) {
			return ErrPayoutBelowMinimum
		}

		batch = &models.PayoutBatch{
			ExternalID:      uuid.NewString(),
			InfluencerID:    influencerID,
			TotalAmount:     models.NewMoneyFromDecimal(total),
			CommissionCount: len(ids),
			Channel:         channel,
			Status:          constants.PayoutBatchStatusPending,
		}
		if err := s.payoutRepo.WithTx(tx).CreateBatch(batch); err != nil {
			return err
		}
		return commissionTx.BatchUpdateCommissions(ids, map[string]interface{}{
			"payout_batch_id": batch.ID,
			"updated_at":      time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.SW().Infow("payout_batch_created",
		"batch_id", batch.ID,
		"external_id", batch.ExternalID,
		"influencer_id", influencerID,
		"total_amount", batch.TotalAmount.Decimal.String(),
		"commission_count", batch.CommissionCount,
	)
	return batch, nil
}

// ExecuteBatch 通过打款渠道执行批次
// 受理成功后批次进入 processing，渠道失败则标记 failed 并保留批内佣金待重试。
func (s *PayoutService) ExecuteBatch(ctx context.Context, batchID uint) (*models.PayoutBatch, error) {
	if batchID == 0 {
		return nil, ErrNotFound
	}
	if s.provider == nil {
		return nil, ErrPayoutChannelUnavailable
	}

	var batch *models.PayoutBatch
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = s.payoutRepo.WithTx(tx).GetBatchByIDForUpdate(batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrNotFound
		}
		switch batch.Status {
		case constants.PayoutBatchStatusPending, constants.PayoutBatchStatusFailed:
		default:
			return ErrPayoutBatchStatusInvalid
		}
		batch.Status = constants.PayoutBatchStatusProcessing
		batch.FailReason = ""
		return s.payoutRepo.WithTx(tx).UpdateBatch(batch)
	})
	if err != nil {
		return nil, err
	}

	input, err := s.buildTransferInput(batch)
	if err != nil {
		s.markBatchFailed(batch, err)
		return nil, err
	}
	result, err := s.provider.Transfer(ctx, input)
	if err != nil {
		s.markBatchFailed(batch, err)
		return nil, err
	}

	batch.TransferRef = result.TransferRef
	if err := s.payoutRepo.UpdateBatch(batch); err != nil {
		return nil, err
	}
	logger.SW().Infow("payout_batch_submitted",
		"batch_id", batch.ID,
		"channel", s.provider.Name(),
		"transfer_ref", result.TransferRef,
	)
	return batch, nil
}

// MarkPaid 确认批次打款完成
// 批次转 paid，批内佣金整体 approved -> paid。
func (s *PayoutService) MarkPaid(batchID uint) (*models.PayoutBatch, error) {
	if batchID == 0 {
		return nil, ErrNotFound
	}

	var batch *models.PayoutBatch
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = s.payoutRepo.WithTx(tx).GetBatchByIDForUpdate(batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrNotFound
		}
		switch batch.Status {
		case constants.PayoutBatchStatusPending, constants.PayoutBatchStatusProcessing:
		default:
			return ErrPayoutBatchStatusInvalid
		}

		commissionTx := s.commissionRepo.WithTx(tx)
		commissions, err := commissionTx.ListCommissionsByBatch(batch.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		ids := make([]uint, 0, len(commissions))
		for _, commission := range commissions {
			if commission.Status != constants.CommissionStatusApproved {
				return ErrCommissionStatusInvalid
			}
			ids = append(ids, commission.ID)
		}
		if err := commissionTx.BatchUpdateCommissions(ids, map[string]interface{}{
			"status":     constants.CommissionStatusPaid,
			"paid_at":    now,
			"updated_at": now,
		}); err != nil {
			return err
		}

		batch.Status = constants.PayoutBatchStatusPaid
		batch.PaidAt = &now
		batch.FailReason = ""
		return s.payoutRepo.WithTx(tx).UpdateBatch(batch)
	})
	if err != nil {
		return nil, err
	}

	logger.SW().Infow("payout_batch_paid",
		"batch_id", batch.ID,
		"influencer_id", batch.InfluencerID,
		"total_amount", batch.TotalAmount.Decimal.String(),
	)
	return batch, nil
}

// MarkFailed 人工标记批次失败
func (s *PayoutService) MarkFailed(batchID uint, reason string) (*models.PayoutBatch, error) {
	if batchID == 0 {
		return nil, ErrNotFound
	}
	var batch *models.PayoutBatch
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = s.payoutRepo.WithTx(tx).GetBatchByIDForUpdate(batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return ErrNotFound
		}
		switch batch.Status {
		case constants.PayoutBatchStatusPending, constants.PayoutBatchStatusProcessing:
		default:
			return ErrPayoutBatchStatusInvalid
		}
		batch.Status = constants.PayoutBatchStatusFailed
		batch.FailReason = strings.TrimSpace(reason)
		return s.payoutRepo.WithTx(tx).UpdateBatch(batch)
	})
	if err != nil {
		return nil, err
	}
	logger.SW().Warnw("payout_batch_failed",
		"batch_id", batch.ID,
		"reason", batch.FailReason,
	)
	return batch, nil
}

// GetByID 查询批次详情
func (s *PayoutService) GetByID(batchID uint) (*models.PayoutBatch, error) {
	batch, err := s.payoutRepo.GetBatchByID(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}
	return batch, nil
}

// List 查询批次列表
func (s *PayoutService) List(filter repository.PayoutBatchListFilter) ([]models.PayoutBatch, int64, error) {
	return s.payoutRepo.ListBatches(filter)
}

// ListBatchCommissions 查询批次内佣金
func (s *PayoutService) ListBatchCommissions(batchID uint) ([]models.Commission, error) {
	if batchID == 0 {
		return []models.Commission{}, nil
	}
	return s.commissionRepo.ListCommissionsByBatch(batchID)
}

func (s *PayoutService) buildTransferInput(batch *models.PayoutBatch) (payout.TransferInput, error) {
	influencer, err := s.influencerRepo.GetByID(batch.InfluencerID)
	if err != nil {
		return payout.TransferInput{}, err
	}
	if influencer == nil {
		return payout.TransferInput{}, ErrNotFound
	}
	account := strings.TrimSpace(influencer.PayoutAccount)
	if account == "" && s.provider.Name() != constants.PayoutChannelManual {
		return payout.TransferInput{}, ErrPayoutChannelUnavailable
	}

	commissions, err := s.commissionRepo.ListCommissionsByBatch(batch.ID)
	if err != nil {
		return payout.TransferInput{}, err
	}
	items := make([]payout.TransferItem, 0, len(commissions))
	for _, commission := range commissions {
		items = append(items, payout.TransferItem{
			DetailNo: fmt.Sprintf("c%d", commission.ID),
			Account:  account,
			Amount:   commission.NetAmount.Decimal,
			Remark:   fmt.Sprintf("commission %d", commission.ID),
		})
	}
	return payout.TransferInput{
		BatchNo:     batch.ExternalID,
		BatchName:   fmt.Sprintf("payout batch %d", batch.ID),
		Remark:      "commission settlement",
		TotalAmount: batch.TotalAmount.Decimal,
		Items:       items,
	}, nil
}

func (s *PayoutService) markBatchFailed(batch *models.PayoutBatch, cause error) {
	batch.Status = constants.PayoutBatchStatusFailed
	batch.FailReason = cause.Error()
	if err := s.payoutRepo.UpdateBatch(batch); err != nil {
		logger.SW().Errorw("payout_batch_fail_update_failed",
			"batch_id", batch.ID,
			"error", err.Error(),
		)
	}
}
