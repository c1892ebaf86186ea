// Package oracle 定义持有权校验接口。
//
// 传输失败与超时统一以 *Error 返回（errors.Is(err, ErrUnavailable) 成立），
// 绝不与 "不持有" 混淆；适配器内部不做重试。
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable 校验服务暂不可用，调用方可重试
var ErrUnavailable = errors.New("ownership oracle unavailable")

// Oracle 回答 "principal 当前是否持有 asset"
type Oracle interface {
	VerifyOwnership(ctx context.Context, principal, assetRef string) (bool, error)
}

// Func 函数式适配
type Func func(ctx context.Context, principal, assetRef string) (bool, error)

// VerifyOwnership 实现 Oracle
func (f Func) VerifyOwnership(ctx context.Context, principal, assetRef string) (bool, error) {
	return f(ctx, principal, assetRef)
}

// Error 校验服务错误
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("oracle %s: unavailable", e.Op)
	}
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrUnavailable) 成立
func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable 构造校验服务错误
func Unavailable(op string, err error) error {
	return &Error{Op: op, Err: err}
}

type timeoutOracle struct {
	next    Oracle
	timeout time.Duration
}

// WithTimeout 为每次校验施加超时，并把任何非 *Error 的失败归一为 *Error
func WithTimeout(next Oracle, timeout time.Duration) Oracle {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &timeoutOracle{next: next, timeout: timeout}
}

func (o *timeoutOracle) VerifyOwnership(ctx context.Context, principal, assetRef string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type outcome struct {
		owned bool
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		owned, err := o.next.VerifyOwnership(ctx, principal, assetRef)
		done <- outcome{owned: owned, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, Unavailable("verify_ownership", ctx.Err())
	case res := <-done:
		if res.err == nil {
			return res.owned, nil
		}
		var oracleErr *Error
		if errors.As(res.err, &oracleErr) {
			return false, res.err
		}
		return false, Unavailable("verify_ownership", res.err)
	}
}
