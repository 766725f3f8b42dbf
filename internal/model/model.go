package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	IsActive     bool
	IsAdmin      bool

	// Single active session: issuing new tokens overwrites these.
	AuthToken             *string
	AuthTokenExpiresAt    *time.Time
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	LastLoginAt           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	ParentID    *uuid.UUID
	IsActive    bool
	CreatedAt   time.Time
}

type Product struct {
	ID               uuid.UUID
	CategoryID       uuid.UUID
	Name             string
	Description      string
	ShortDescription string
	SKU              string
	Price            decimal.Decimal
	ComparePrice     decimal.NullDecimal
	CostPrice        decimal.NullDecimal
	StockQuantity    int
	MinStockLevel    int
	IsActive         bool
	IsFeatured       bool
	Tags             string
	RatingAverage    decimal.Decimal
	RatingCount      int
	ViewCount        int
	SoldCount        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsInStock is derived, never stored.
func (p *Product) IsInStock() bool { return p.StockQuantity > 0 }

// DiscountPercentage returns round((compare-price)/compare*100, 2) when the
// compare price is set and higher than the sale price, else zero.
func (p *Product) DiscountPercentage() decimal.Decimal {
	if !p.ComparePrice.Valid || !p.ComparePrice.Decimal.GreaterThan(p.Price) {
		return decimal.Zero
	}
	diff := p.ComparePrice.Decimal.Sub(p.Price)
	return diff.Div(p.ComparePrice.Decimal).Mul(decimal.NewFromInt(100)).Round(2)
}

type ProductVariant struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Name          string
	SKU           string
	Price         decimal.NullDecimal
	StockQuantity int
	IsActive      bool
	Attributes    map[string]string
}

type Address struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Type         string
	FirstName    string
	LastName     string
	Company      string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        string
	IsDefault    bool
	CreatedAt    time.Time
}

// OrderAddress is the point-in-time address copy stored on an order. Later
// edits to the user's address book never touch it.
type OrderAddress struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company,omitempty"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// CartLine is one (product, optional variant, quantity) entry in a user's
// cart, joined with live catalog data for pricing.
type CartLine struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int

	ProductName  string
	ProductSKU   string
	VariantName  *string
	ProductPrice decimal.Decimal
	VariantPrice decimal.NullDecimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnitPrice prefers the variant price when one is attached and set, else the
// base product price.
func (l *CartLine) UnitPrice() decimal.Decimal {
	if l.VariantID != nil && l.VariantPrice.Valid {
		return l.VariantPrice.Decimal
	}
	return l.ProductPrice
}

func (l *CartLine) TotalPrice() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      uuid.UUID

	Status        OrderStatus
	PaymentStatus PaymentStatus

	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal

	BillingAddress  *OrderAddress
	ShippingAddress *OrderAddress
	Notes           string
	Currency        string

	Items []OrderItem

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ConfirmedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
}

// OrderItem is the frozen snapshot of product data at checkout time. It
// stays historically accurate even if the product is later repriced,
// renamed, or deactivated.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID

	ProductName string
	ProductSKU  string
	VariantName *string

	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

type Review struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID

	Rating  int
	Title   string
	Comment string

	// Frozen at creation time, never recomputed.
	IsVerifiedPurchase bool
	IsApproved         bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Coupon struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Description string

	DiscountType      string // "percentage" or "fixed_amount"
	DiscountValue     decimal.Decimal
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount decimal.NullDecimal

	UsageLimit *int
	UsedCount  int

	IsActive   bool
	ValidFrom  time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
}

// IsValid reports whether the coupon can currently be applied.
func (c *Coupon) IsValid(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false
	}
	return true
}

// DiscountFor computes the discount the coupon grants on the given subtotal.
// Returns zero when the subtotal is below the coupon's minimum.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(c.MinOrderAmount) {
		return decimal.Zero
	}
	var discount decimal.Decimal
	if c.DiscountType == "percentage" {
		discount = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if c.MaxDiscountAmount.Valid && discount.GreaterThan(c.MaxDiscountAmount.Decimal) {
			discount = c.MaxDiscountAmount.Decimal
		}
	} else {
		discount = c.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount
}

// OrderCreatedEvent is published to the orders queue after a checkout
// transaction commits.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      uuid.UUID        `json:"user_id"`
	Items       []OrderEventItem `json:"items"`
}

type OrderEventItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
