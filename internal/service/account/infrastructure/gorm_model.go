package infrastructure

import "time"

// UserModel 对应 users 表，登录安全状态直接挂在用户行上。
type UserModel struct {
	ID                  int64  `gorm:"primaryKey"`
	Username            string `gorm:"type:varchar(150);uniqueIndex;not null"`
	Email               string `gorm:"type:varchar(254);uniqueIndex;not null"`
	PasswordHash        string `gorm:"type:varchar(100);not null"`
	IsActive            bool   `gorm:"not null"`
	FailedLoginAttempts int    `gorm:"not null"`
	LockoutUntil        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName 指定 GORM 应该使用的表名
func (UserModel) TableName() string {
	return "users"
}

// AddressModel 对应 addresses 表。
type AddressModel struct {
	ID           int64  `gorm:"primaryKey"`
	UserID       int64  `gorm:"not null;index:idx_address_user_type"`
	AddressType  string `gorm:"type:varchar(10);not null;index:idx_address_user_type"`
	FullName     string `gorm:"type:varchar(100);not null"`
	AddressLine1 string `gorm:"type:varchar(255);not null"`
	AddressLine2 string `gorm:"type:varchar(255)"`
	City         string `gorm:"type:varchar(100);not null"`
	State        string `gorm:"type:varchar(100);not null"`
	PostalCode   string `gorm:"type:varchar(20);not null"`
	Country      string `gorm:"type:varchar(100);not null"`
	Phone        string `gorm:"type:varchar(20);not null"`
	IsDefault    bool   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AddressModel) TableName() string {
	return "addresses"
}
