package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var testRedis *redis.Client

func TestMain(m *testing.M) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		fmt.Println("TEST_REDIS_ADDR not set, skipping worker tests")
		os.Exit(0)
	}
	testRedis = redis.NewClient(&redis.Options{Addr: addr})
	os.Exit(m.Run())
}

type soldCounter struct {
	sold    map[uuid.UUID]int
	soldErr error
}

func newSoldCounter() *soldCounter {
	return &soldCounter{sold: make(map[uuid.UUID]int)}
}

func (m *soldCounter) IncrementSold(_ context.Context, id uuid.UUID, quantity int) error {
	if m.soldErr != nil {
		return m.soldErr
	}
	m.sold[id] += quantity
	return nil
}

func (m *soldCounter) Create(context.Context, *model.Product) error { return nil }
func (m *soldCounter) GetByID(context.Context, uuid.UUID, bool) (*model.Product, error) {
	return nil, nil
}
func (m *soldCounter) GetBySKU(context.Context, string) (*model.Product, error) { return nil, nil }
func (m *soldCounter) List(context.Context, repository.ProductFilter) ([]model.Product, int, error) {
	return nil, 0, nil
}
func (m *soldCounter) Update(context.Context, *model.Product) error       { return nil }
func (m *soldCounter) SoftDelete(context.Context, uuid.UUID) error        { return nil }
func (m *soldCounter) IncrementView(context.Context, uuid.UUID) error     { return nil }
func (m *soldCounter) ListVariants(context.Context, uuid.UUID) ([]model.ProductVariant, error) {
	return nil, nil
}
func (m *soldCounter) GetVariant(context.Context, uuid.UUID) (*model.ProductVariant, error) {
	return nil, nil
}

// ackRecorder captures the delivery outcome so tests can assert whether a
// message was acked or dead-lettered.
type ackRecorder struct {
	acks    int
	nacks   int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acks++; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacks++
	a.requeue = requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacks++
	a.requeue = requeue
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func orderDelivery(t *testing.T, event model.OrderCreatedEvent, rec *ackRecorder) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: rec, Body: body}
}

func TestOrderWorker_DuplicateDeliveryCountsOnce(t *testing.T) {
	ctx := context.Background()
	products := newSoldCounter()
	w := NewOrderWorker(nil, products, testRedis, discardLogger())

	productID := uuid.New()
	event := model.OrderCreatedEvent{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-20260828-1234",
		UserID:      uuid.New(),
		Items:       []model.OrderEventItem{{ProductID: productID, Quantity: 2}},
	}
	t.Cleanup(func() { testRedis.Del(ctx, "order_sold:"+event.OrderID.String()) })

	first := &ackRecorder{}
	w.processMessage(ctx, orderDelivery(t, event, first))
	require.Equal(t, 1, first.acks)
	require.Equal(t, 2, products.sold[productID])

	// At-least-once delivery: a redelivery of the same order is acked but
	// must not move the counter again.
	second := &ackRecorder{}
	w.processMessage(ctx, orderDelivery(t, event, second))
	require.Equal(t, 1, second.acks)
	require.Equal(t, 0, second.nacks)
	require.Equal(t, 2, products.sold[productID])
}

func TestOrderWorker_MalformedMessageDeadLetters(t *testing.T) {
	products := newSoldCounter()
	w := NewOrderWorker(nil, products, testRedis, discardLogger())

	rec := &ackRecorder{}
	w.processMessage(context.Background(), amqp.Delivery{Acknowledger: rec, Body: []byte("not json")})
	require.Equal(t, 0, rec.acks)
	require.Equal(t, 1, rec.nacks)
	require.False(t, rec.requeue)
	require.Empty(t, products.sold)
}

func TestOrderWorker_CounterFailureDeadLettersWithoutMarking(t *testing.T) {
	ctx := context.Background()
	products := newSoldCounter()
	products.soldErr = fmt.Errorf("store down")
	w := NewOrderWorker(nil, products, testRedis, discardLogger())

	event := model.OrderCreatedEvent{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-20260828-5678",
		UserID:      uuid.New(),
		Items:       []model.OrderEventItem{{ProductID: uuid.New(), Quantity: 1}},
	}
	t.Cleanup(func() { testRedis.Del(ctx, "order_sold:"+event.OrderID.String()) })

	rec := &ackRecorder{}
	w.processMessage(ctx, orderDelivery(t, event, rec))
	require.Equal(t, 1, rec.nacks)
	require.False(t, rec.requeue)

	// The order stays uncounted, so a DLQ replay can still succeed.
	exists, err := testRedis.Exists(ctx, "order_sold:"+event.OrderID.String()).Result()
	require.NoError(t, err)
	require.Zero(t, exists)
}
