package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
)

// EventTypeHeader 标识消息体的事件类型。
const EventTypeHeader = "event-type"

// EventKafkaAdapter 实现了 port.EventPublisher 接口。
// 订单事件以订单 ID 为 key，同一订单的事件落在同一分区，保持顺序。
type EventKafkaAdapter struct {
	orders *kafka.Writer
	alerts *kafka.Writer
}

var _ port.EventPublisher = (*EventKafkaAdapter)(nil)

// NewEventKafkaAdapter 创建一个新的事件生产者适配器。
func NewEventKafkaAdapter(orders, alerts *kafka.Writer) *EventKafkaAdapter {
	return &EventKafkaAdapter{orders: orders, alerts: alerts}
}

func (a *EventKafkaAdapter) PublishOrderPlaced(ctx context.Context, e *domain.OrderPlaced) error {
	return publish(ctx, a.orders, "OrderPlaced", e.OrderID, e)
}

func (a *EventKafkaAdapter) PublishOrderCancelled(ctx context.Context, e *domain.OrderCancelled) error {
	return publish(ctx, a.orders, "OrderCancelled", e.OrderID, e)
}

func (a *EventKafkaAdapter) PublishIntegrityAlert(ctx context.Context, e *domain.IntegrityViolationDetected) error {
	return publish(ctx, a.alerts, "IntegrityViolationDetected", e.OrderID, e)
}

func publish(ctx context.Context, w *kafka.Writer, eventType string, orderID int64, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	// 调用通用的 mq.ProduceMessage，它会自动处理追踪上下文注入
	return mq.ProduceMessage(ctx, w, []byte(strconv.FormatInt(orderID, 10)), body,
		kafka.Header{Key: EventTypeHeader, Value: []byte(eventType)})
}

// Close 关闭底层的 Kafka writer。
func (a *EventKafkaAdapter) Close() error {
	err := a.orders.Close()
	if aerr := a.alerts.Close(); err == nil {
		err = aerr
	}
	return err
}

// LogEventPublisher 在没有配置 Kafka 时使用，只把事件写进日志。
type LogEventPublisher struct{}

var _ port.EventPublisher = LogEventPublisher{}

func (LogEventPublisher) PublishOrderPlaced(ctx context.Context, e *domain.OrderPlaced) error {
	logger.Ctx(ctx).Info().Str("event", "OrderPlaced").Int64("order_id", e.OrderID).Str("total", e.Total).Send()
	return nil
}

func (LogEventPublisher) PublishOrderCancelled(ctx context.Context, e *domain.OrderCancelled) error {
	logger.Ctx(ctx).Info().Str("event", "OrderCancelled").Int64("order_id", e.OrderID).Send()
	return nil
}

func (LogEventPublisher) PublishIntegrityAlert(ctx context.Context, e *domain.IntegrityViolationDetected) error {
	logger.Ctx(ctx).Error().Str("event", "IntegrityViolationDetected").Str("alert", "integrity_violation").
		Int64("order_id", e.OrderID).Str("source", e.Source).Send()
	return nil
}
