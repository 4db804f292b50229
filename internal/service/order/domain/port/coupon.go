package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CouponRequest 是下单时评估优惠券所需的订单信息。
type CouponRequest struct {
	UserID        int64
	Subtotal      decimal.Decimal
	PaymentMethod string
	ItemCount     int
	Now           time.Time
}

// CouponQuote 是在事务内加锁评估通过的优惠券。
type CouponQuote struct {
	CouponID int64
	Code     string
	Discount decimal.Decimal
	handle   any
}

// NewCouponQuote 由适配器构造，handle 保存适配器自己的数据，记录使用时原样取回。
func NewCouponQuote(id int64, code string, discount decimal.Decimal, handle any) *CouponQuote {
	return &CouponQuote{CouponID: id, Code: code, Discount: discount, handle: handle}
}

func (q *CouponQuote) Handle() any { return q.handle }

// CouponEngine 是促销服务的出站端口。
type CouponEngine interface {
	// Apply 对优惠券行加锁并完成全部校验，必须在下单事务内调用。
	Apply(ctx context.Context, code string, req CouponRequest) (*CouponQuote, error)
	// Record 追加使用记录并增加全局次数，与订单写入处于同一事务。
	Record(ctx context.Context, q *CouponQuote, userID, orderID int64) error
}
