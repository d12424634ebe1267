package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"subscription-service/internal/biz"
	"subscription-service/internal/conf"
	"subscription-service/internal/constants"
	subErrors "subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultAppleVerifyURL        = "https://buy.itunes.apple.com/verifyReceipt"
	defaultAppleSandboxVerifyURL = "https://sandbox.itunes.apple.com/verifyReceipt"
)

// appleVerifier Apple verifyReceipt 客户端
type appleVerifier struct {
	client       *http.Client
	verifyURL    string
	sandboxURL   string
	sharedSecret string
	log          *log.Helper
}

// NewAppleVerifier 创建 Apple 收据校验客户端（返回 biz.AppleVerifier 接口）
func NewAppleVerifier(c *conf.Bootstrap, logger log.Logger) (biz.AppleVerifier, error) {
	if c.Providers == nil || c.Providers.Apple == nil {
		return nil, fmt.Errorf("apple config is nil")
	}

	verifyURL := c.Providers.Apple.VerifyUrl
	if verifyURL == "" {
		verifyURL = defaultAppleVerifyURL
	}
	sandboxURL := c.Providers.Apple.SandboxVerifyUrl
	if sandboxURL == "" {
		sandboxURL = defaultAppleSandboxVerifyURL
	}

	return &appleVerifier{
		client:       &http.Client{Timeout: c.Providers.Apple.TimeoutDuration()},
		verifyURL:    verifyURL,
		sandboxURL:   sandboxURL,
		sharedSecret: c.Providers.Apple.SharedSecret,
		log:          log.NewHelper(logger),
	}, nil
}

// VerifyReceipt 校验收据
// 先走生产环境，返回 21007（沙盒收据）时改用沙盒环境重试
func (v *appleVerifier) VerifyReceipt(ctx context.Context, receiptData string) (*biz.AppleReceiptResponse, error) {
	response, err := v.verify(ctx, v.verifyURL, receiptData)
	if err != nil {
		return nil, err
	}
	if response.Status == constants.AppleReceiptStatusSandbox {
		v.log.Infof("sandbox receipt detected, retrying against sandbox environment")
		return v.verify(ctx, v.sandboxURL, receiptData)
	}
	return response, nil
}

// verify 调用 verifyReceipt 接口
func (v *appleVerifier) verify(ctx context.Context, url, receiptData string) (*biz.AppleReceiptResponse, error) {
	body, err := json.Marshal(map[string]string{
		"receipt-data": receiptData,
		"password":     v.sharedSecret,
	})
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeAppleVerifyFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeAppleVerifyFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Errorf("verifyReceipt request failed: url=%s, error=%v", url, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeAppleVerifyFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.log.Errorf("verifyReceipt returned status %d", resp.StatusCode)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeAppleVerifyFailed)
	}

	var response biz.AppleReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		v.log.Errorf("verifyReceipt decode failed: error=%v", err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeAppleVerifyFailed)
	}
	return &response, nil
}
