package domain

import "github.com/shopspring/decimal"

// PricingPolicy 是税率和运费规则。
type PricingPolicy struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// DefaultPricingPolicy: 税率 15%，小计不足 100 收 10 元运费。
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.RequireFromString("0.15"),
		ShippingFee:           decimal.RequireFromString("10.00"),
		FreeShippingThreshold: decimal.RequireFromString("100.00"),
	}
}

// Totals 是订单上所有参与摘要计算的金额。
type Totals struct {
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// LineTotal = 单价 * 数量。
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// ComputeTax 四舍五入到分。
func ComputeTax(subtotal decimal.Decimal, p PricingPolicy) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

// ComputeShipping 小计达到门槛免运费。
func ComputeShipping(subtotal decimal.Decimal, p PricingPolicy) decimal.Decimal {
	if subtotal.LessThan(p.FreeShippingThreshold) {
		return p.ShippingFee
	}
	return decimal.Zero
}

// ComputeTotals 计算 total = subtotal + tax + shipping - discount。
// 折扣已经被限制在小计以内，负数总价说明上游出现了不变量破坏。
func ComputeTotals(subtotal, discount decimal.Decimal, p PricingPolicy) (Totals, error) {
	t := Totals{
		Subtotal:     subtotal.Round(2),
		Tax:          ComputeTax(subtotal, p),
		ShippingCost: ComputeShipping(subtotal, p),
		Discount:     discount.Round(2),
	}
	t.Total = t.Subtotal.Add(t.Tax).Add(t.ShippingCost).Sub(t.Discount)
	if t.Total.IsNegative() {
		return Totals{}, ErrFatalComputation.Withf("negative total %s", t.Total.StringFixed(2))
	}
	return t, nil
}
