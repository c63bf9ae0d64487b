package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid   = errors.New("payout config invalid")
	ErrRequestFailed   = errors.New("payout request failed")
	ErrResponseInvalid = errors.New("payout response invalid")
)

// TransferItem 批量转账单笔明细
type TransferItem struct {
	DetailNo string
	Account  string
	Amount   decimal.Decimal
	Remark   string
}

// TransferInput 批量转账输入
// BatchNo 使用结算批次对外ID，渠道侧按其幂等。
type TransferInput struct {
	BatchNo     string
	BatchName   string
	Remark      string
	TotalAmount decimal.Decimal
	Items       []TransferItem
}

// TransferResult 批量转账受理结果
type TransferResult struct {
	TransferRef string
	Accepted    bool
}

// Provider 结算打款渠道
type Provider interface {
	Name() string
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
}

// NewProvider 按配置创建打款渠道
func NewProvider(cfg config.PayoutConfig) (Provider, error) {
	channel := strings.ToLower(strings.TrimSpace(cfg.Channel))
	switch channel {
	case "", constants.PayoutChannelManual:
		return &ManualProvider{}, nil
	case constants.PayoutChannelWechat:
		if !cfg.Wechat.Enabled {
			return nil, fmt.Errorf("%w: wechat channel disabled", ErrConfigInvalid)
		}
		return NewWechatProvider(cfg.Wechat)
	default:
		return nil, fmt.Errorf("%w: unknown channel %s", ErrConfigInvalid, channel)
	}
}

func validateTransferInput(input TransferInput) error {
	if strings.TrimSpace(input.BatchNo) == "" {
		return fmt.Errorf("%w: batch no is required", ErrConfigInvalid)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: transfer items are empty", ErrConfigInvalid)
	}
	if input.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: total amount must be positive", ErrConfigInvalid)
	}
	sum := decimal.Zero
	for _, item := range input.Items {
		if item.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: item amount must be positive", ErrConfigInvalid)
		}
		sum = sum.Add(item.Amount)
	}
	if !sum.Round(2).Equal(input.TotalAmount.Round(2)) {
		return fmt.Errorf("%w: item amounts do not sum to total", ErrConfigInvalid)
	}
	return nil
}
