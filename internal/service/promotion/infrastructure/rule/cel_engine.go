// Package rule 使用 CEL 评估优惠券上的附加条件。
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"storefront/internal/service/promotion/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的实现，编译后的程序按表达式缓存。
type CELRuleEngine struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("payment_method", cel.StringType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("user_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELRuleEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

var _ domain.RuleEngine = (*CELRuleEngine)(nil)

func (e *CELRuleEngine) Check(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *CELRuleEngine) Evaluate(expr string, fact domain.Fact) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"subtotal":       fact.Subtotal,
		"payment_method": fact.PaymentMethod,
		"item_count":     int64(fact.ItemCount),
		"user_id":        fact.UserID,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T, want bool", expr, out.Value())
	}
	return b, nil
}

func (e *CELRuleEngine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition %q must return bool, got %s", expr, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program %q: %w", expr, err)
	}

	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
