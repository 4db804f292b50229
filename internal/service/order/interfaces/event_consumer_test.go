package interfaces

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/infrastructure/adapter"
)

type stubReader struct {
	calls []int64
	err   error
}

func (s *stubReader) GetOrder(_ context.Context, userID, orderID int64) (*domain.Order, error) {
	if userID != 0 {
		panic("consumer must read as operator")
	}
	s.calls = append(s.calls, orderID)
	return nil, s.err
}

func message(t *testing.T, eventType string, payload any) kafka.Message {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Message{
		Value:   body,
		Headers: []kafka.Header{{Key: adapter.EventTypeHeader, Value: []byte(eventType)}},
	}
}

func TestConsumerRereadsPlacedOrders(t *testing.T) {
	reader := &stubReader{}
	c := NewOrderEventConsumer(nil, reader)

	c.processMessage(context.Background(), message(t, "OrderPlaced", &domain.OrderPlaced{OrderID: 7}))
	c.processMessage(context.Background(), message(t, "OrderCancelled", &domain.OrderCancelled{OrderID: 8}))
	c.processMessage(context.Background(), kafka.Message{Value: []byte("{}")})

	assert.Equal(t, []int64{7}, reader.calls)
}

func TestConsumerToleratesViolationsAndGarbage(t *testing.T) {
	reader := &stubReader{err: domain.ErrIntegrityViolation}
	c := NewOrderEventConsumer(nil, reader)

	c.processMessage(context.Background(), message(t, "OrderPlaced", &domain.OrderPlaced{OrderID: 9}))
	bad := message(t, "OrderPlaced", nil)
	bad.Value = []byte("not json")
	c.processMessage(context.Background(), bad)

	assert.Equal(t, []int64{9}, reader.calls)
}
