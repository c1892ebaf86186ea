// Package eth 基于 EVM 合约 balanceOf 的持有权校验。
//
// asset_ref 形如 "0xContract"（ERC-721 / ERC-20，调用 balanceOf(owner)）
// 或 "0xContract/<tokenId>"（ERC-1155，调用 balanceOf(owner, id)）。
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/dealmint/internal/oracle"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const balanceOfABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const multiTokenBalanceOfABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var (
	singleABI = mustParseABI(balanceOfABI)
	multiABI  = mustParseABI(multiTokenBalanceOfABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Oracle EVM 持有权校验
type Oracle struct {
	caller bind.ContractCaller
	closer func()
}

// New 使用已有的合约调用方
func New(caller bind.ContractCaller) *Oracle {
	return &Oracle{caller: caller}
}

// Dial 连接 RPC 节点
func Dial(ctx context.Context, rpcURL string) (*Oracle, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	return &Oracle{caller: client, closer: client.Close}, nil
}

// Close 释放 RPC 连接
func (o *Oracle) Close() {
	if o.closer != nil {
		o.closer()
	}
}

// AssetRef 解析后的资产引用
type AssetRef struct {
	Contract common.Address
	TokenID  *big.Int
}

// ParseAssetRef 解析 asset_ref，格式非法时返回 false
func ParseAssetRef(ref string) (AssetRef, bool) {
	ref = strings.TrimSpace(ref)
	contract, tokenID, hasToken := strings.Cut(ref, "/")
	if !common.IsHexAddress(contract) {
		return AssetRef{}, false
	}
	out := AssetRef{Contract: common.HexToAddress(contract)}
	if !hasToken {
		return out, true
	}
	id, ok := new(big.Int).SetString(tokenID, 0)
	if !ok || id.Sign() < 0 {
		return AssetRef{}, false
	}
	out.TokenID = id
	return out, true
}

// VerifyOwnership 余额大于 0 视为持有；地址或资产格式非法时直接返回 false
func (o *Oracle) VerifyOwnership(ctx context.Context, principal, assetRef string) (bool, error) {
	if !common.IsHexAddress(principal) {
		return false, nil
	}
	asset, ok := ParseAssetRef(assetRef)
	if !ok {
		return false, nil
	}
	owner := common.HexToAddress(principal)

	var (
		contract *bind.BoundContract
		params   []interface{}
	)
	if asset.TokenID == nil {
		contract = bind.NewBoundContract(asset.Contract, singleABI, o.caller, nil, nil)
		params = []interface{}{owner}
	} else {
		contract = bind.NewBoundContract(asset.Contract, multiABI, o.caller, nil, nil)
		params = []interface{}{owner, asset.TokenID}
	}

	var out []interface{}
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", params...)
	if err != nil {
		if errors.Is(err, bind.ErrNoCode) {
			return false, nil
		}
		return false, oracle.Unavailable("eth_call", err)
	}
	if len(out) == 0 {
		return false, oracle.Unavailable("eth_call", errors.New("empty balanceOf result"))
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return false, oracle.Unavailable("eth_call", fmt.Errorf("unexpected balanceOf result type %T", out[0]))
	}
	return balance.Sign() > 0, nil
}
