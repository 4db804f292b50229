package domain

import "time"

// OrderPlaced 在订单提交成功后发布。
type OrderPlaced struct {
	OrderID       int64     `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	UserID        int64     `json:"userId"`
	Total         string    `json:"total"`
	ItemCount     int       `json:"itemCount"`
	CouponCode    string    `json:"couponCode,omitempty"`
	PaymentMethod string    `json:"paymentMethod"`
	PlacedAt      time.Time `json:"placedAt"`
}

// OrderCancelled 在订单取消且库存归还之后发布。
type OrderCancelled struct {
	OrderID     int64     `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      int64     `json:"userId"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// IntegrityViolationDetected 发往运维告警通道，订单进入只读状态等待调查。
type IntegrityViolationDetected struct {
	OrderID      int64     `json:"orderId"`
	OrderNumber  string    `json:"orderNumber"`
	StoredDigest string    `json:"storedDigest"`
	Source       string    `json:"source"` // read | list | cancel | advance | audit
	DetectedAt   time.Time `json:"detectedAt"`
}

func NewOrderPlaced(o *Order) *OrderPlaced {
	return &OrderPlaced{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Total:         o.Total.StringFixed(2),
		ItemCount:     o.ItemCount(),
		CouponCode:    o.CouponCode,
		PaymentMethod: string(o.PaymentMethod),
		PlacedAt:      o.CreatedAt,
	}
}
