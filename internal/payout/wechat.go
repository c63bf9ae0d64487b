package payout

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"

	"github.com/shopspring/decimal"
	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

const wechatTransferURL = "https://api.mch.weixin.qq.com/v3/transfer/batches"

// WechatProvider 微信商家批量转账渠道
type WechatProvider struct {
	cfg        config.WechatPayoutConfig
	privateKey *rsa.PrivateKey
}

// NewWechatProvider 创建微信打款渠道
func NewWechatProvider(cfg config.WechatPayoutConfig) (*WechatProvider, error) {
	if strings.TrimSpace(cfg.AppID) == "" {
		return nil, fmt.Errorf("%w: app_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MchID) == "" {
		return nil, fmt.Errorf("%w: mch_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.MchCertSerialNumber) == "" {
		return nil, fmt.Errorf("%w: mch_cert_serial_number is required", ErrConfigInvalid)
	}
	if len(strings.TrimSpace(cfg.MchAPIv3Key)) != 32 {
		return nil, fmt.Errorf("%w: mch_apiv3_key must be 32 chars", ErrConfigInvalid)
	}
	privateKey, err := utils.LoadPrivateKeyWithPath(strings.TrimSpace(cfg.PrivateKeyPath))
	if err != nil {
		return nil, fmt.Errorf("%w: load private key failed", ErrConfigInvalid)
	}
	return &WechatProvider{cfg: cfg, privateKey: privateKey}, nil
}

// Name 渠道名
func (p *WechatProvider) Name() string {
	return constants.PayoutChannelWechat
}

// Transfer 发起批量转账
// out_batch_no 取批次对外ID，重复提交同一批次由微信侧幂等处理。
func (p *WechatProvider) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := validateTransferInput(input); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	totalFen, err := amountToFen(input.TotalAmount)
	if err != nil {
		return nil, err
	}
	details := make([]map[string]interface{}, 0, len(input.Items))
	for _, item := range input.Items {
		itemFen, err := amountToFen(item.Amount)
		if err != nil {
			return nil, err
		}
		remark := strings.TrimSpace(item.Remark)
		if remark == "" {
			remark = "佣金结算"
		}
		details = append(details, map[string]interface{}{
			"out_detail_no":   item.DetailNo,
			"transfer_amount": itemFen,
			"transfer_remark": remark,
			"openid":          strings.TrimSpace(item.Account),
		})
	}

	batchName := strings.TrimSpace(input.BatchName)
	if batchName == "" {
		batchName = "佣金结算批次"
	}
	remark := strings.TrimSpace(input.Remark)
	if remark == "" {
		remark = batchName
	}
	payload := map[string]interface{}{
		"appid":                p.cfg.AppID,
		"out_batch_no":         input.BatchNo,
		"batch_name":           batchName,
		"batch_remark":         remark,
		"total_amount":         totalFen,
		"total_num":            len(details),
		"transfer_detail_list": details,
	}

	client, err := p.createAPIClient(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := doPostJSON(ctx, client, wechatTransferURL, payload)
	if err != nil {
		return nil, err
	}
	batchID := readTransferString(raw, "batch_id")
	if batchID == "" {
		return nil, fmt.Errorf("%w: missing batch_id", ErrResponseInvalid)
	}
	return &TransferResult{TransferRef: batchID, Accepted: true}, nil
}

func (p *WechatProvider) createAPIClient(ctx context.Context) (*core.Client, error) {
	client, err := core.NewClient(ctx,
		option.WithMerchantCredential(p.cfg.MchID, p.cfg.MchCertSerialNumber, p.privateKey),
		option.WithoutValidator(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: init client failed", ErrConfigInvalid)
	}
	return client, nil
}

func doPostJSON(ctx context.Context, client *core.Client, requestURL string, payload map[string]interface{}) (map[string]interface{}, error) {
	result, err := client.Post(ctx, requestURL, payload)
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, strings.TrimSpace(apiErr.Message))
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return parseAPIResult(result)
}

func parseAPIResult(result *core.APIResult) (map[string]interface{}, error) {
	if result == nil || result.Response == nil || result.Response.Body == nil {
		return nil, fmt.Errorf("%w: empty response", ErrResponseInvalid)
	}
	defer result.Response.Body.Close()

	respBody, readErr := io.ReadAll(result.Response.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if result.Response.StatusCode < 200 || result.Response.StatusCode >= 300 {
		if len(respBody) > 0 {
			return nil, fmt.Errorf("%w: status %d body %s", ErrResponseInvalid, result.Response.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return nil, fmt.Errorf("%w: status %d", ErrResponseInvalid, result.Response.StatusCode)
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrResponseInvalid)
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func amountToFen(amount decimal.Decimal) (int64, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	fen := amount.Mul(decimal.NewFromInt(100))
	if !fen.Equal(fen.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision exceeds fen", ErrConfigInvalid)
	}
	return fen.IntPart(), nil
}

func readTransferString(raw map[string]interface{}, key string) string {
	value, ok := raw[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}
