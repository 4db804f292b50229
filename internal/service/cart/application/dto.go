package application

import (
	"github.com/shopspring/decimal"

	"storefront/internal/service/cart/domain"
)

// AddResult 告诉调用方该行最终的数量，以及是否因库存被截断。
type AddResult struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Capped    bool  `json:"capped"`
}

// LineView 是带有实时商品信息的购物车行。
type LineView struct {
	domain.Line
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
	// Available 表示商品上架、有货且数量不超过库存
	Available bool `json:"available"`
}

// CartView 是购物车页面和结算页使用的只读视图，每次都从当前行重新计算。
type CartView struct {
	CartID     int64           `json:"cart_id"`
	Lines      []LineView      `json:"lines"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// MergeResult 记录登录合并购物车的结果。
type MergeResult struct {
	CartID  int64   `json:"cart_id"`
	Merged  int     `json:"merged"`
	Skipped []int64 `json:"skipped,omitempty"` // 已下架或无货而被丢弃的商品
}
