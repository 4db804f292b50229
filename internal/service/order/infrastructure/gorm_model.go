package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"

	cataloginfra "storefront/internal/service/catalog/infrastructure"
)

// AddressColumns 是订单上地址快照的存储形式，以 JSON 写入一列。
type AddressColumns struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

// OrderModel 对应 orders 表。金额列在创建后不会再被写入。
type OrderModel struct {
	ID                 int64           `gorm:"primaryKey"`
	OrderNumber        string          `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID             int64           `gorm:"not null;index:idx_order_user_created"`
	Status             string          `gorm:"type:varchar(20);not null;index"`
	PaymentStatus      string          `gorm:"type:varchar(20);not null"`
	PaymentMethod      string          `gorm:"type:varchar(20);not null"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Tax                decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ShippingCost       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount           decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total              decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CouponCode         string          `gorm:"type:varchar(50)"`
	IntegrityDigest    string          `gorm:"type:char(64);not null"`
	ShippingAddress    AddressColumns  `gorm:"type:text;serializer:json"`
	BillingAddress     AddressColumns  `gorm:"type:text;serializer:json"`
	Notes              string          `gorm:"type:text"`
	IPAddress          string          `gorm:"type:varchar(45)"`
	UserAgent          string          `gorm:"type:varchar(500)"`
	TrackingNumber     string          `gorm:"type:varchar(100)"`
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	IntegrityFlaggedAt *time.Time
	CreatedAt          time.Time `gorm:"index:idx_order_user_created"`
	UpdatedAt          time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应 order_items 表。商品删除后 product_id 置空，快照字段保留。
type OrderItemModel struct {
	ID          int64           `gorm:"primaryKey"`
	OrderID     int64           `gorm:"not null;index"`
	ProductID   *int64          `gorm:"index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity    int             `gorm:"not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	// 商品删除后明细保留，引用置空；名称和单价是下单时的快照
	Product *cataloginfra.ProductModel `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
