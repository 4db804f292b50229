package infrastructure

import "storefront/internal/service/cart/domain"

func toDomainCart(m *CartModel) *domain.Cart {
	c := &domain.Cart{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Lines:     make([]domain.Line, 0, len(m.Lines)),
	}
	switch {
	case m.UserID != nil:
		c.Owner = domain.UserOwner(*m.UserID)
	case m.SessionToken != nil:
		c.Owner = domain.AnonymousOwner(*m.SessionToken)
	}
	for _, l := range m.Lines {
		c.Lines = append(c.Lines, domain.Line{
			ID:              l.ID,
			CartID:          l.CartID,
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtAddition: l.PriceAtAddition,
			AddedAt:         l.AddedAt,
		})
	}
	return c
}

// ownerColumns 把 CartOwner 展开为两列中的一列。
func ownerColumns(owner domain.CartOwner) (userID *int64, token *string) {
	if id, ok := owner.UserID(); ok {
		return &id, nil
	}
	if t, ok := owner.SessionToken(); ok {
		return nil, &t
	}
	return nil, nil
}
