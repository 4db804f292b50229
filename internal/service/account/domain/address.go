package domain

import (
	"strings"
	"time"

	"storefront/internal/pkg/errs"
)

type AddressType string

const (
	AddressBilling  AddressType = "billing"
	AddressShipping AddressType = "shipping"
)

var (
	ErrAddressNotFound = errs.New(errs.KindValidation, "address_not_found", "address not found")
	ErrInvalidAddress  = errs.New(errs.KindValidation, "invalid_address", "invalid address")
)

// Address 是地址簿里的一条记录。每个用户每种类型最多一个默认地址。
type Address struct {
	ID           int64
	UserID       int64
	Type         AddressType
	FullName     string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        string
	IsDefault    bool
	CreatedAt    time.Time
}

func (a *Address) Validate() error {
	if a.Type != AddressBilling && a.Type != AddressShipping {
		return ErrInvalidAddress.Withf("address type must be billing or shipping")
	}
	required := map[string]string{
		"full name":      a.FullName,
		"address line 1": a.AddressLine1,
		"city":           a.City,
		"state":          a.State,
		"postal code":    a.PostalCode,
		"country":        a.Country,
		"phone":          a.Phone,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			return ErrInvalidAddress.Withf("%s is required", field)
		}
	}
	return nil
}
