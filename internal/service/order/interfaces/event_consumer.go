package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/infrastructure/adapter"
)

// OrderReader 是消费者需要的读取用例，GetOrder 在摘要不匹配时负责标记和告警。
type OrderReader interface {
	GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
}

// OrderEventConsumer 是一个驱动适配器，它监听订单事件，
// 在订单写入后从数据库重新读取一次并校验摘要，尽早发现写入路径之外的篡改。
type OrderEventConsumer struct {
	reader *kafka.Reader
	orders OrderReader
}

// NewOrderEventConsumer 创建一个新的 Kafka 消费者适配器。
func NewOrderEventConsumer(reader *kafka.Reader, orders OrderReader) *OrderEventConsumer {
	return &OrderEventConsumer{reader: reader, orders: orders}
}

// Run 持续消费直到 ctx 结束。这是一个长期运行的方法。
func (a *OrderEventConsumer) Run(ctx context.Context) error {
	log := logger.L()
	log.Info().Str("topic", a.reader.Config().Topic).Msg("order event consumer started")
	defer a.reader.Close()

	for {
		// 使用 FetchMessage 而不是 ReadMessage，处理完成后再提交 offset
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("order event consumer shutting down")
				return nil
			}
			log.Error().Err(err).Msg("could not read message, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		a.processMessage(ctx, msg)

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to commit message")
		}
	}
}

func (a *OrderEventConsumer) processMessage(parent context.Context, msg kafka.Message) {
	if eventType(msg) != "OrderPlaced" {
		return
	}
	ctx := mq.ExtractTraceContext(parent, msg.Headers)
	ctx, span := otel.Tracer("order-event-consumer").Start(ctx, "consumer.VerifyPlacedOrder",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event domain.OrderPlaced
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal OrderPlaced, skipping")
		return
	}
	_, err := a.orders.GetOrder(ctx, 0, event.OrderID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIntegrityViolation):
		// 告警已经由 GetOrder 发出
		span.RecordError(err)
	case errs.KindOf(err) == errs.KindAvailability:
		logger.Ctx(ctx).Warn().Int64("order_id", event.OrderID).Msg("placed order not found")
	default:
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", event.OrderID).Msg("failed to verify placed order")
	}
}

func eventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == adapter.EventTypeHeader {
			return string(h.Value)
		}
	}
	return ""
}
