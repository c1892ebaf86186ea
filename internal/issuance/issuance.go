// Package issuance 调用外部资产发行服务为活动铸造资产模板。
package issuance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("issuance config invalid")
	ErrRequestFailed   = errors.New("issuance request failed")
	ErrResponseInvalid = errors.New("issuance response invalid")
)

// Request 发行请求
type Request struct {
	PromotionID string    `json:"promotion_id"`
	MerchantID  string    `json:"merchant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Tags        []string  `json:"tags"`
	Discount    string    `json:"discount"`
	TotalSupply int       `json:"total_supply"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Result 发行结果
type Result struct {
	AssetRef    string `json:"asset_ref"`
	MetadataURI string `json:"metadata_uri"`
}

// Issuer 资产发行接口
type Issuer interface {
	Issue(ctx context.Context, req Request) (*Result, error)
}

// Config HTTP 发行服务配置
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// HTTPIssuer 通过 HTTP JSON 接口发行
type HTTPIssuer struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPIssuer 创建 HTTP 发行客户端
func NewHTTPIssuer(cfg Config) (*HTTPIssuer, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrConfigInvalid)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPIssuer{
		endpoint: endpoint,
		token:    strings.TrimSpace(cfg.Token),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Issue 发起发行请求
func (i *HTTPIssuer) Issue(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if i.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+i.token)
	}

	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	result.AssetRef = strings.TrimSpace(result.AssetRef)
	if result.AssetRef == "" {
		return nil, fmt.Errorf("%w: missing asset_ref", ErrResponseInvalid)
	}
	return &result, nil
}
