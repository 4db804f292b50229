package port

import (
	"context"

	"storefront/internal/service/order/domain"
)

// EventPublisher 在事务提交之后发布订单事件。发布失败不影响已提交的订单。
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, e *domain.OrderPlaced) error
	PublishOrderCancelled(ctx context.Context, e *domain.OrderCancelled) error
	// PublishIntegrityAlert 发往运维告警通道。
	PublishIntegrityAlert(ctx context.Context, e *domain.IntegrityViolationDetected) error
}
