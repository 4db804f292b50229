// Package domain 定义订单聚合、定价和完整性摘要。
package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/pkg/errs"
)

const (
	maxNotesLength     = 500
	maxUserAgentLength = 500
)

var (
	ErrOrderNotFound      = errs.New(errs.KindAvailability, "order_not_found", "order not found")
	ErrEmptyCart          = errs.New(errs.KindValidation, "empty_cart", "your cart is empty")
	ErrLoginRequired      = errs.New(errs.KindValidation, "login_required", "please sign in to place an order")
	ErrAddressNotFound    = errs.New(errs.KindValidation, "address_not_found", "address not found")
	ErrNotCancellable     = errs.New(errs.KindAvailability, "not_cancellable", "this order can no longer be cancelled")
	ErrInvalidTransition  = errs.New(errs.KindValidation, "invalid_status_transition", "invalid status transition")
	ErrIntegrityViolation = errs.New(errs.KindIntegrity, "integrity_violation", "order record failed integrity verification")
	ErrOrderFlagged       = errs.New(errs.KindIntegrity, "order_flagged", "order is under integrity investigation")
	ErrFatalComputation   = errs.New(errs.KindInternal, "fatal_computation", "order total computation failed")
)

// AddressSnapshot 是下单时地址的逐字段拷贝，之后修改地址簿不会影响历史订单。
type AddressSnapshot struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

// Order 是订单聚合的根实体。创建后只有状态和物流字段可以修改。
type Order struct {
	ID            int64
	OrderNumber   string
	UserID        int64
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod

	Totals
	CouponCode      string
	IntegrityDigest string

	ShippingAddress AddressSnapshot
	BillingAddress  AddressSnapshot

	Notes     string
	IPAddress string
	UserAgent string

	TrackingNumber     string
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	IntegrityFlaggedAt *time.Time

	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem 是下单时商品的快照。商品被删除后 ProductID 为空，名称和价格仍保留。
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   *int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// NewOrderNumber 生成形如 ORD-1767225600-A1B2C3 的订单号。
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", now.Unix(), suffix)
}

// NewItem 构造订单行快照。
func NewItem(productID int64, name string, unitPrice decimal.Decimal, qty int) OrderItem {
	id := productID
	return OrderItem{
		ProductID:   &id,
		ProductName: name,
		UnitPrice:   unitPrice,
		Quantity:    qty,
		LineTotal:   LineTotal(unitPrice, qty),
	}
}

// Truncate 按字符数截断。
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func TruncateNotes(s string) string     { return Truncate(s, maxNotesLength) }
func TruncateUserAgent(s string) string { return Truncate(s, maxUserAgentLength) }

// State 返回订单在下单引擎中的生命周期位置。
func (o *Order) State() State {
	switch {
	case o.ID == 0:
		return StateDraft
	case o.Status == StatusCancelled:
		return StateCancelled
	default:
		return StateCommitted
	}
}

func (o *Order) IsFlagged() bool { return o.IntegrityFlaggedAt != nil }

// Cancel 只允许从 pending / confirmed 取消。
func (o *Order) Cancel(now time.Time) error {
	if o.IsFlagged() {
		return ErrOrderFlagged
	}
	if !o.Status.CanCancel() {
		return ErrNotCancellable.Withf("orders in status %s can no longer be cancelled", o.Status)
	}
	o.Status = StatusCancelled
	o.UpdatedAt = now
	return nil
}

// Advance 执行一次履约流转。发货必须带物流单号。
func (o *Order) Advance(to Status, trackingNumber string, now time.Time) error {
	if o.IsFlagged() {
		return ErrOrderFlagged
	}
	if !o.Status.CanAdvanceTo(to) {
		return ErrInvalidTransition.Withf("cannot move order from %s to %s", o.Status, to)
	}
	switch to {
	case StatusShipped:
		trackingNumber = strings.TrimSpace(trackingNumber)
		if trackingNumber == "" {
			return ErrInvalidTransition.Withf("a tracking number is required to ship an order")
		}
		o.TrackingNumber = Truncate(trackingNumber, 100)
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// Flag 标记订单完整性异常，之后拒绝一切修改。
func (o *Order) Flag(now time.Time) {
	if o.IntegrityFlaggedAt == nil {
		o.IntegrityFlaggedAt = &now
	}
}

// ItemCount 是所有行数量之和。
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
