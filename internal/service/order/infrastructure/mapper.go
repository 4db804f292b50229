package infrastructure

import "storefront/internal/service/order/domain"

func toAddressColumns(a domain.AddressSnapshot) AddressColumns {
	return AddressColumns(a)
}

func toDomainAddress(a AddressColumns) domain.AddressSnapshot {
	return domain.AddressSnapshot(a)
}

func fromDomainOrder(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID,
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		PaymentMethod:      string(o.PaymentMethod),
		Subtotal:           o.Subtotal,
		Tax:                o.Tax,
		ShippingCost:       o.ShippingCost,
		Discount:           o.Discount,
		Total:              o.Total,
		CouponCode:         o.CouponCode,
		IntegrityDigest:    o.IntegrityDigest,
		ShippingAddress:    toAddressColumns(o.ShippingAddress),
		BillingAddress:     toAddressColumns(o.BillingAddress),
		Notes:              o.Notes,
		IPAddress:          o.IPAddress,
		UserAgent:          o.UserAgent,
		TrackingNumber:     o.TrackingNumber,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		IntegrityFlaggedAt: o.IntegrityFlaggedAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		})
	}
	return m
}

func toDomainOrder(m *OrderModel) *domain.Order {
	o := &domain.Order{
		ID:            m.ID,
		OrderNumber:   m.OrderNumber,
		UserID:        m.UserID,
		Status:        domain.Status(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		Totals: domain.Totals{
			Subtotal:     m.Subtotal,
			Tax:          m.Tax,
			ShippingCost: m.ShippingCost,
			Discount:     m.Discount,
			Total:        m.Total,
		},
		CouponCode:         m.CouponCode,
		IntegrityDigest:    m.IntegrityDigest,
		ShippingAddress:    toDomainAddress(m.ShippingAddress),
		BillingAddress:     toDomainAddress(m.BillingAddress),
		Notes:              m.Notes,
		IPAddress:          m.IPAddress,
		UserAgent:          m.UserAgent,
		TrackingNumber:     m.TrackingNumber,
		ShippedAt:          m.ShippedAt,
		DeliveredAt:        m.DeliveredAt,
		IntegrityFlaggedAt: m.IntegrityFlaggedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal,
		})
	}
	return o
}
