package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skinstack-core/internal/config"
	"github.com/skinstack-core/internal/constants"
)

// stripeStyleSignatureTolerance t=<ts>,v1=<hex> 风格签名允许的时钟偏差
const stripeStyleSignatureTolerance = 5 * time.Minute

// WebhookSignatureInput 签名校验输入
// Header 取各来源约定的签名头原始值。
type WebhookSignatureInput struct {
	Source  string
	Payload []byte
	Header  string
}

// WebhookSignatureVerifier 回调签名校验器
type WebhookSignatureVerifier struct {
	cfg config.WebhookConfig
	now func() time.Time
}

// NewWebhookSignatureVerifier 创建签名校验器
func NewWebhookSignatureVerifier(cfg config.WebhookConfig) *WebhookSignatureVerifier {
	return &WebhookSignatureVerifier{cfg: cfg, now: time.Now}
}

// SignatureHeaderName 返回来源对应的签名请求头名
func SignatureHeaderName(source string) string {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case constants.WebhookSourceRefersion:
		return "X-Refersion-Signature"
	case constants.WebhookSourceShopify:
		return "X-Shopify-Hmac-Sha256"
	case constants.WebhookSourceImpact:
		return "X-Impact-Signature"
	case constants.WebhookSourceLevanta:
		return "X-Levanta-Signature"
	default:
		return ""
	}
}

// Verify 校验回调签名；未启用校验的来源直接放行
func (v *WebhookSignatureVerifier) Verify(input WebhookSignatureInput) error {
	sourceCfg, err := v.sourceConfig(input.Source)
	if err != nil {
		return err
	}
	if !sourceCfg.VerifySignature {
		return nil
	}
	if strings.TrimSpace(sourceCfg.Secret) == "" {
		return fmt.Errorf("%w: secret not configured for %s", ErrSignatureInvalid, input.Source)
	}
	header := strings.TrimSpace(input.Header)
	if header == "" {
		return fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}

	switch strings.ToLower(strings.TrimSpace(input.Source)) {
	case constants.WebhookSourceRefersion:
		return verifyPrefixedHexSignature(sourceCfg.Secret, input.Payload, header)
	case constants.WebhookSourceShopify:
		return verifyBase64Signature(sourceCfg.Secret, input.Payload, header)
	case constants.WebhookSourceImpact, constants.WebhookSourceLevanta:
		return verifyStripeStyleSignature(sourceCfg.Secret, input.Payload, header, v.now())
	default:
		return ErrUnsupportedSource
	}
}

func (v *WebhookSignatureVerifier) sourceConfig(source string) (config.WebhookSourceConfig, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case constants.WebhookSourceRefersion:
		return v.cfg.Refersion, nil
	case constants.WebhookSourceShopify:
		return v.cfg.Shopify, nil
	case constants.WebhookSourceImpact:
		return v.cfg.Impact, nil
	case constants.WebhookSourceLevanta:
		return v.cfg.Levanta, nil
	default:
		return config.WebhookSourceConfig{}, ErrUnsupportedSource
	}
}

// verifyPrefixedHexSignature 校验 sha256=<hex> 风格签名
func verifyPrefixedHexSignature(secret string, payload []byte, header string) error {
	value := header
	if strings.HasPrefix(strings.ToLower(value), "sha256=") {
		value = value[len("sha256="):]
	}
	expected := hmacSHA256(secret, payload)
	provided, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: malformed hex signature", ErrSignatureInvalid)
	}
	if !hmac.Equal(expected, provided) {
		return ErrSignatureInvalid
	}
	return nil
}

// verifyBase64Signature 校验 base64 摘要风格签名（Shopify）
func verifyBase64Signature(secret string, payload []byte, header string) error {
	provided, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return fmt.Errorf("%w: malformed base64 signature", ErrSignatureInvalid)
	}
	if !hmac.Equal(hmacSHA256(secret, payload), provided) {
		return ErrSignatureInvalid
	}
	return nil
}

// verifyStripeStyleSignature 校验 t=<ts>,v1=<hex> 风格签名
// 签名基串为 "<ts>.<payload>"，时间戳超出容忍窗口的请求视为重放。
func verifyStripeStyleSignature(secret string, payload []byte, header string, now time.Time) error {
	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed timestamp", ErrSignatureInvalid)
			}
			timestamp = parsed
		case "v1":
			decoded, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, decoded)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("%w: missing timestamp or signature", ErrSignatureInvalid)
	}

	drift := now.Sub(time.Unix(timestamp, 0))
	if drift < -stripeStyleSignatureTolerance || drift > stripeStyleSignatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	signedPayload := strconv.FormatInt(timestamp, 10) + "." + string(payload)
	expected := hmacSHA256(secret, []byte(signedPayload))
	for _, provided := range signatures {
		if hmac.Equal(expected, provided) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

func hmacSHA256(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}
