package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel 对应 products 表。
type ProductModel struct {
	ID            int64               `gorm:"primaryKey"`
	SKU           string              `gorm:"type:varchar(64);uniqueIndex"`
	Name          string              `gorm:"type:varchar(200);not null"`
	Price         decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	DiscountPrice decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	Stock         int                 `gorm:"not null;default:0"`
	IsActive      bool                `gorm:"not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ProductModel) TableName() string {
	return "products"
}
