// Package solana 基于 SPL Token 账户余额的持有权校验。
package solana

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/dealmint/internal/oracle"

	"github.com/ethereum/go-ethereum/rpc"
)

// codeInvalidParams JSON-RPC 参数非法（例如地址无法解析）
const codeInvalidParams = -32602

var pubkeyPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Caller JSON-RPC 调用方
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Oracle Solana 持有权校验
type Oracle struct {
	caller     Caller
	commitment string
	closer     func()
}

// New 使用已有的 JSON-RPC 调用方
func New(caller Caller, commitment string) *Oracle {
	if strings.TrimSpace(commitment) == "" {
		commitment = "confirmed"
	}
	return &Oracle{caller: caller, commitment: commitment}
}

// Dial 连接 Solana RPC 节点
func Dial(ctx context.Context, rpcURL, commitment string) (*Oracle, error) {
	client, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial solana rpc: %w", err)
	}
	o := New(client, commitment)
	o.closer = client.Close
	return o, nil
}

// Close 释放 RPC 连接
func (o *Oracle) Close() {
	if o.closer != nil {
		o.closer()
	}
}

type tokenAmount struct {
	Amount   string   `json:"amount"`
	UIAmount *float64 `json:"uiAmount"`
}

type tokenAccountsResult struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount tokenAmount `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// IsPublicKey 粗校验 base58 公钥格式
func IsPublicKey(value string) bool {
	return pubkeyPattern.MatchString(value)
}

// VerifyOwnership 任一 token 账户余额大于 0 视为持有
func (o *Oracle) VerifyOwnership(ctx context.Context, principal, assetRef string) (bool, error) {
	if !IsPublicKey(principal) || !IsPublicKey(assetRef) {
		return false, nil
	}

	var result tokenAccountsResult
	err := o.caller.CallContext(ctx, &result, "getTokenAccountsByOwner",
		principal,
		map[string]string{"mint": assetRef},
		map[string]string{"encoding": "jsonParsed", "commitment": o.commitment},
	)
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeInvalidParams {
			return false, nil
		}
		return false, oracle.Unavailable("get_token_accounts_by_owner", err)
	}

	for _, account := range result.Value {
		if positive(account.Account.Data.Parsed.Info.TokenAmount) {
			return true, nil
		}
	}
	return false, nil
}

func positive(amount tokenAmount) bool {
	if raw, ok := new(big.Int).SetString(strings.TrimSpace(amount.Amount), 10); ok {
		return raw.Sign() > 0
	}
	return amount.UIAmount != nil && *amount.UIAmount > 0
}
