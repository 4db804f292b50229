package infrastructure

import "storefront/internal/service/account/domain"

func toDomainUser(m *UserModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		IsActive:     m.IsActive,
		Security: domain.SecurityState{
			FailedAttempts: m.FailedLoginAttempts,
			LockoutUntil:   m.LockoutUntil,
		},
		CreatedAt: m.CreatedAt,
	}
}

func fromDomainUser(u *domain.User) *UserModel {
	return &UserModel{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               domain.NormalizeIdentity(u.Email),
		PasswordHash:        u.PasswordHash,
		IsActive:            u.IsActive,
		FailedLoginAttempts: u.Security.FailedAttempts,
		LockoutUntil:        u.Security.LockoutUntil,
		CreatedAt:           u.CreatedAt,
	}
}

func toDomainAddress(m *AddressModel) *domain.Address {
	return &domain.Address{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         domain.AddressType(m.AddressType),
		FullName:     m.FullName,
		AddressLine1: m.AddressLine1,
		AddressLine2: m.AddressLine2,
		City:         m.City,
		State:        m.State,
		PostalCode:   m.PostalCode,
		Country:      m.Country,
		Phone:        m.Phone,
		IsDefault:    m.IsDefault,
		CreatedAt:    m.CreatedAt,
	}
}

func fromDomainAddress(a *domain.Address) *AddressModel {
	return &AddressModel{
		ID:           a.ID,
		UserID:       a.UserID,
		AddressType:  string(a.Type),
		FullName:     a.FullName,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
		IsDefault:    a.IsDefault,
		CreatedAt:    a.CreatedAt,
	}
}
