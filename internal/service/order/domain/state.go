package domain

import "storefront/internal/pkg/errs"

// Status 是持久化在订单上的状态字段。
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// State 是下单引擎关心的生命周期: Draft -> Committed -> Cancelled。
// 履约状态 (confirmed/shipped/...) 都属于 Committed。
type State string

const (
	StateDraft     State = "DRAFT"
	StateCommitted State = "COMMITTED"
	StateCancelled State = "CANCELLED"
)

// PaymentStatus 由支付网关回写，本模块只设置初始值。
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

var ErrInvalidPaymentMethod = errs.New(errs.KindValidation, "invalid_payment_method", "invalid payment method")

// ParsePaymentMethod 只接受已知的支付方式。
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCOD, PaymentCreditCard, PaymentPayPal, PaymentBankTransfer:
		return m, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// fulfillment 是允许的履约状态流转。
var fulfillment = map[Status]Status{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// CanCancel 只有尚未进入处理流程的订单可以取消。
func (s Status) CanCancel() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanAdvanceTo 报告 s -> to 是否是合法的履约流转。
func (s Status) CanAdvanceTo(to Status) bool {
	next, ok := fulfillment[s]
	return ok && next == to
}
