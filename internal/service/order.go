package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/tarulabs/taru-api/internal/dto"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidAmount = errors.New("invalid order amount")
	ErrCouponInvalid = errors.New("coupon is not valid")
)

// orderNumberAttempts caps the regenerate-and-retry loop on order number
// collisions. Four random digits per day make collisions rare but real.
const orderNumberAttempts = 10

type OrderService struct {
	orderRepo  repository.OrderRepository
	couponRepo repository.CouponRepository
	amqpCh     *amqp.Channel
	logger     *slog.Logger

	newOrderNumber func() string
}

func NewOrderService(orderRepo repository.OrderRepository, couponRepo repository.CouponRepository, amqpCh *amqp.Channel, logger *slog.Logger) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		couponRepo:     couponRepo,
		amqpCh:         amqpCh,
		logger:         logger,
		newOrderNumber: generateOrderNumber,
	}
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%04d", time.Now().Format("20060102"), rand.Intn(10000))
}

// Create turns the user's cart into an order in one transaction: price the
// locked cart snapshot, freeze per-line product data, insert, clear the
// cart. Retries the whole transaction on an order-number collision.
func (s *OrderService) Create(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	tax, shipping, discount := decimal.Zero, decimal.Zero, decimal.Zero
	if req.TaxAmount != nil {
		tax = *req.TaxAmount
	}
	if req.ShippingAmount != nil {
		shipping = *req.ShippingAmount
	}
	if req.DiscountAmount != nil {
		discount = *req.DiscountAmount
	}
	if tax.IsNegative() || shipping.IsNegative() || discount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var coupon *model.Coupon
	if req.CouponCode != "" {
		var err error
		coupon, err = s.couponRepo.GetByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("get coupon: %w", err)
		}
		if coupon == nil || !coupon.IsValid(time.Now()) {
			return nil, ErrCouponInvalid
		}
	}

	build := func(lines []model.CartLine) (*model.Order, error) {
		if len(lines) == 0 {
			return nil, ErrEmptyCart
		}

		subtotal := decimal.Zero
		items := make([]model.OrderItem, 0, len(lines))
		for i := range lines {
			l := &lines[i]
			unit := l.UnitPrice()
			items = append(items, model.OrderItem{
				ProductID:   l.ProductID,
				VariantID:   l.VariantID,
				ProductName: l.ProductName,
				ProductSKU:  l.ProductSKU,
				VariantName: l.VariantName,
				Quantity:    l.Quantity,
				UnitPrice:   unit,
				TotalPrice:  l.TotalPrice(),
			})
			subtotal = subtotal.Add(l.TotalPrice())
		}

		// The closure can run more than once on an order-number retry, so
		// the captured discount is never mutated.
		totalDiscount := discount
		if coupon != nil {
			totalDiscount = totalDiscount.Add(coupon.DiscountFor(subtotal))
		}
		total := subtotal.Add(tax).Add(shipping).Sub(totalDiscount)
		if total.IsNegative() {
			return nil, ErrInvalidAmount
		}

		billing := req.ShippingAddress.Model()
		if req.BillingAddress != nil {
			billing = req.BillingAddress.Model()
		}

		return &model.Order{
			OrderNumber:     s.newOrderNumber(),
			UserID:          userID,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			Subtotal:        subtotal,
			TaxAmount:       tax,
			ShippingAmount:  shipping,
			DiscountAmount:  totalDiscount,
			TotalAmount:     total,
			BillingAddress:  billing,
			ShippingAddress: req.ShippingAddress.Model(),
			Notes:           req.Notes,
			Currency:        "USD",
			Items:           items,
		}, nil
	}

	var order *model.Order
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order, err = s.orderRepo.Place(ctx, userID, build)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, err
		}
	}
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}

	if coupon != nil {
		if _, err := s.couponRepo.Redeem(ctx, coupon.ID); err != nil {
			s.logger.Error("record coupon redemption", "coupon", coupon.Code, "error", err)
		}
	}

	s.publishOrderCreated(ctx, order)

	resp := dto.NewOrderResponse(order)
	return &resp, nil
}

// publishOrderCreated is best effort: the order is already committed, so a
// broker outage only delays downstream counters.
func (s *OrderService) publishOrderCreated(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	event := model.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
	}
	for i := range order.Items {
		event.Items = append(event.Items, model.OrderEventItem{
			ProductID: order.Items[i].ProductID,
			Quantity:  order.Items[i].Quantity,
		})
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode order event", "order", order.OrderNumber, "error", err)
		return
	}
	err = s.amqpCh.PublishWithContext(ctx, "", "orders", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		s.logger.Error("publish order event", "order", order.OrderNumber, "error", err)
	}
}

func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID, user *model.User) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	// Foreign orders are indistinguishable from missing ones.
	if order == nil || (order.UserID != user.ID && !user.IsAdmin) {
		return nil, ErrOrderNotFound
	}
	resp := dto.NewOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uuid.UUID, req dto.ListOrdersRequest) (*dto.OrderListResponse, error) {
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orderList(orders, total, req), nil
}

func (s *OrderService) ListAll(ctx context.Context, req dto.ListOrdersRequest) (*dto.OrderListResponse, error) {
	var status *model.OrderStatus
	if req.Status != "" {
		st := model.OrderStatus(req.Status)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		status = &st
	}
	orders, total, err := s.orderRepo.ListAll(ctx, status, req.Limit, (req.Page-1)*req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orderList(orders, total, req), nil
}

func orderList(orders []model.Order, total int, req dto.ListOrdersRequest) *dto.OrderListResponse {
	resp := &dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
		Total:  total,
		Page:   req.Page,
		Limit:  req.Limit,
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, dto.NewOrderResponse(&orders[i]))
	}
	return resp
}

// SetStatus validates the status against the enum and applies it. Timestamp
// stamping for confirmed/shipped/delivered is idempotent in the store.
func (s *OrderService) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (*dto.OrderResponse, error) {
	st := model.OrderStatus(status)
	if !st.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, st); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	resp := dto.NewOrderResponse(order)
	return &resp, nil
}
