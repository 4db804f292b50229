package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartModel 对应 carts 表。user_id 与 session_token 有且只有一个非空。
type CartModel struct {
	ID           int64   `gorm:"primaryKey"`
	UserID       *int64  `gorm:"uniqueIndex;check:chk_cart_owner,(user_id IS NULL) <> (session_token IS NULL)"`
	SessionToken *string `gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Lines []CartLineModel `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (CartModel) TableName() string {
	return "carts"
}

// CartLineModel 对应 cart_items 表。
type CartLineModel struct {
	ID              int64           `gorm:"primaryKey"`
	CartID          int64           `gorm:"not null;uniqueIndex:uk_cart_product"`
	ProductID       int64           `gorm:"not null;uniqueIndex:uk_cart_product"`
	Quantity        int             `gorm:"not null"`
	PriceAtAddition decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	AddedAt         time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time
}

func (CartLineModel) TableName() string {
	return "cart_items"
}
