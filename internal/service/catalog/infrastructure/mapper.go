package infrastructure

import "storefront/internal/service/catalog/domain"

func toDomainProduct(m *ProductModel) *domain.Product {
	if m == nil {
		return nil
	}
	return &domain.Product{
		ID:            m.ID,
		SKU:           m.SKU,
		Name:          m.Name,
		Price:         m.Price,
		DiscountPrice: m.DiscountPrice,
		Stock:         m.Stock,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromDomainProduct(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Stock:         p.Stock,
		IsActive:      p.IsActive,
	}
}
