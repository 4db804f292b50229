// Package errs 定义了下单引擎统一的错误分类。
// 每个业务错误都属于一个 Kind，调用方通过 errors.Is 判断类别，而不是比较字符串。
package errs

import (
	"errors"
	"fmt"
)

// Kind 是错误的大类，决定了错误能否重试以及如何展示给终端用户。
type Kind string

const (
	KindValidation     Kind = "validation"      // 输入格式/范围错误，用户修正后可重试
	KindAvailability   Kind = "availability"    // 库存、优惠券、商品状态导致的失败
	KindIntegrity      Kind = "integrity"       // 订单摘要校验失败，致命
	KindConcurrency    Kind = "concurrency"     // 锁超时、死锁，可自动重试一次
	KindSecurityPolicy Kind = "security_policy" // 账户锁定、限流
	KindInternal       Kind = "internal"
)

// 以下哨兵值用于 errors.Is(err, errs.ErrValidation) 这类按类别的判断。
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrAvailability   = &Error{Kind: KindAvailability}
	ErrIntegrity      = &Error{Kind: KindIntegrity}
	ErrConcurrency    = &Error{Kind: KindConcurrency}
	ErrSecurityPolicy = &Error{Kind: KindSecurityPolicy}
	ErrInternal       = &Error{Kind: KindInternal}
)

const (
	genericRejection = "the request could not be completed, please try again later"
	genericFailure   = "something went wrong while processing your request"
)

// Error 是带类别的业务错误。
type Error struct {
	Kind    Kind
	Code    string // 稳定的机器可读编码, e.g. "insufficient_stock"
	Message string // 面向用户的具体描述
	Err     error  // 底层原因
}

// New 创建一个新的业务错误。
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap 用给定的类别包装一个底层错误。
func Wrap(kind Kind, code string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Code == "" && e.Message == "":
		return string(e.Kind)
	case e.Err != nil && e.Err.Error() != e.Message:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is 能按类别（哨兵无 Code）或按具体编码匹配。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithCause 返回一个携带底层原因的副本，原错误值保持不变。
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Withf 返回一个替换了用户描述的副本。
func (e *Error) Withf(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// KindOf 返回错误链上第一个业务错误的类别，未知错误归为 internal。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable 只有并发冲突可以安全地自动重试。
func IsRetryable(err error) bool {
	return KindOf(err) == KindConcurrency
}

// PublicMessage 返回可以展示给终端用户的文本。
// 安全策略类错误统一返回相同的文案，避免泄露具体是哪一项检查失败。
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return genericFailure
	}
	switch e.Kind {
	case KindValidation, KindAvailability:
		if e.Message != "" {
			return e.Message
		}
		return genericRejection
	case KindSecurityPolicy, KindConcurrency:
		return genericRejection
	default:
		return genericFailure
	}
}
