package domain

// Fact 是规则表达式可以引用的订单事实。
type Fact struct {
	Subtotal      float64
	PaymentMethod string
	ItemCount     int
	UserID        string
}

// RuleEngine 评估优惠券上的附加条件。
type RuleEngine interface {
	// Check 检查表达式能否编译且返回布尔值，创建优惠券时调用。
	Check(expr string) error
	Evaluate(expr string, fact Fact) (bool, error)
}
