package payout

import (
	"context"

	"github.com/skinstack-core/internal/constants"
)

// ManualProvider 人工打款渠道
// 只做受理登记，实际打款由运营线下完成后在后台确认。
type ManualProvider struct{}

// NewManualProvider 创建人工打款渠道
func NewManualProvider() *ManualProvider {
	return &ManualProvider{}
}

// Name 渠道名
func (p *ManualProvider) Name() string {
	return constants.PayoutChannelManual
}

// Transfer 受理批次（无外部调用）
func (p *ManualProvider) Transfer(_ context.Context, input TransferInput) (*TransferResult, error) {
	if err := validateTransferInput(input); err != nil {
		return nil, err
	}
	return &TransferResult{
		TransferRef: "manual:" + input.BatchNo,
		Accepted:    true,
	}, nil
}
