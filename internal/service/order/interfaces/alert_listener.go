package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/order/domain"
)

// AlertListener 监听完整性告警主题，把每条告警写成运维可检索的错误日志。
// 告警消息处理后总是直接提交，它们不会被重放。
type AlertListener struct {
	reader *kafka.Reader
}

func NewAlertListener(reader *kafka.Reader) *AlertListener {
	return &AlertListener{reader: reader}
}

func (a *AlertListener) Run(ctx context.Context) error {
	log := logger.L()
	log.Info().Str("topic", a.reader.Config().Topic).Msg("integrity alert listener started")
	defer a.reader.Close()

	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("integrity alert listener shutting down")
				return nil
			}
			log.Error().Err(err).Msg("could not read alert, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		logAlert(mq.ExtractTraceContext(ctx, msg.Headers), msg)

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to commit alert")
		}
	}
}

func logAlert(ctx context.Context, msg kafka.Message) {
	var e domain.IntegrityViolationDetected
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("key", string(msg.Key)).Str("value", string(msg.Value)).
			Msg("unreadable integrity alert")
		return
	}
	logger.Ctx(ctx).Error().
		Str("alert", "integrity_violation").
		Int64("order_id", e.OrderID).
		Str("order_number", e.OrderNumber).
		Str("stored_digest", e.StoredDigest).
		Str("source", e.Source).
		Time("detected_at", e.DetectedAt).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("CRITICAL: order failed integrity verification, record is read-only pending investigation")
}
