package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tarulabs/taru-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=30"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type AuthResponse struct {
	AuthToken        string       `json:"auth_token"`
	AuthExpiresAt    time.Time    `json:"auth_expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		IsAdmin:     u.IsAdmin,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// --- Catalog ---

type CreateProductRequest struct {
	CategoryID       uuid.UUID            `json:"category_id" binding:"required"`
	Name             string               `json:"name" binding:"required"`
	Description      string               `json:"description"`
	ShortDescription string               `json:"short_description"`
	SKU              string               `json:"sku" binding:"required"`
	Price            decimal.Decimal      `json:"price" binding:"required"`
	ComparePrice     *decimal.Decimal     `json:"compare_price"`
	CostPrice        *decimal.Decimal     `json:"cost_price"`
	StockQuantity    int                  `json:"stock_quantity" binding:"min=0"`
	MinStockLevel    int                  `json:"min_stock_level" binding:"min=0"`
	IsFeatured       bool                 `json:"is_featured"`
	Tags             string               `json:"tags"`
}

type UpdateProductRequest struct {
	CategoryID       *uuid.UUID       `json:"category_id"`
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	ShortDescription *string          `json:"short_description"`
	Price            *decimal.Decimal `json:"price"`
	ComparePrice     *decimal.Decimal `json:"compare_price"`
	CostPrice        *decimal.Decimal `json:"cost_price"`
	StockQuantity    *int             `json:"stock_quantity"`
	MinStockLevel    *int             `json:"min_stock_level"`
	IsActive         *bool            `json:"is_active"`
	IsFeatured       *bool            `json:"is_featured"`
	Tags             *string          `json:"tags"`
}

type ListProductsRequest struct {
	Page       int     `form:"page,default=1" binding:"min=1"`
	Limit      int     `form:"limit,default=20" binding:"min=1,max=100"`
	CategoryID string  `form:"category_id"`
	Search     string  `form:"search"`
	MinPrice   *string `form:"min_price"`
	MaxPrice   *string `form:"max_price"`
	Sort       string  `form:"sort,default=created_at" binding:"oneof=name price rating created_at"`
	Order      string  `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID                 uuid.UUID         `json:"id"`
	CategoryID         uuid.UUID         `json:"category_id"`
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	ShortDescription   string            `json:"short_description,omitempty"`
	SKU                string            `json:"sku"`
	Price              decimal.Decimal   `json:"price"`
	ComparePrice       *decimal.Decimal  `json:"compare_price,omitempty"`
	DiscountPercentage decimal.Decimal   `json:"discount_percentage"`
	StockQuantity      int               `json:"stock_quantity"`
	IsInStock          bool              `json:"is_in_stock"`
	IsActive           bool              `json:"is_active"`
	IsFeatured         bool              `json:"is_featured"`
	Tags               string            `json:"tags,omitempty"`
	RatingAverage      decimal.Decimal   `json:"rating_average"`
	RatingCount        int               `json:"rating_count"`
	ViewCount          int               `json:"view_count"`
	SoldCount          int               `json:"sold_count"`
	Variants           []VariantResponse `json:"variants,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func NewProductResponse(p *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:                 p.ID,
		CategoryID:         p.CategoryID,
		Name:               p.Name,
		Description:        p.Description,
		ShortDescription:   p.ShortDescription,
		SKU:                p.SKU,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage(),
		StockQuantity:      p.StockQuantity,
		IsInStock:          p.IsInStock(),
		IsActive:           p.IsActive,
		IsFeatured:         p.IsFeatured,
		Tags:               p.Tags,
		RatingAverage:      p.RatingAverage,
		RatingCount:        p.RatingCount,
		ViewCount:          p.ViewCount,
		SoldCount:          p.SoldCount,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.ComparePrice.Valid {
		resp.ComparePrice = &p.ComparePrice.Decimal
	}
	return resp
}

type VariantResponse struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	SKU           string            `json:"sku"`
	Price         *decimal.Decimal  `json:"price,omitempty"`
	StockQuantity int               `json:"stock_quantity"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

func NewVariantResponse(v *model.ProductVariant) VariantResponse {
	resp := VariantResponse{
		ID:            v.ID,
		Name:          v.Name,
		SKU:           v.SKU,
		StockQuantity: v.StockQuantity,
		Attributes:    v.Attributes,
	}
	if v.Price.Valid {
		resp.Price = &v.Price.Decimal
	}
	return resp
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

type CategoryResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	ProductCount int        `json:"product_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

type CategoryDetailResponse struct {
	Category CategoryResponse    `json:"category"`
	Products ProductListResponse `json:"products"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type CartItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	VariantName *string         `json:"variant_name,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
}

func NewCartResponse(lines []model.CartLine) CartResponse {
	resp := CartResponse{Items: make([]CartItemResponse, 0, len(lines)), Subtotal: decimal.Zero}
	for i := range lines {
		l := &lines[i]
		resp.Items = append(resp.Items, CartItemResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			ProductName: l.ProductName,
			ProductSKU:  l.ProductSKU,
			VariantName: l.VariantName,
			UnitPrice:   l.UnitPrice(),
			Quantity:    l.Quantity,
			TotalPrice:  l.TotalPrice(),
		})
		resp.TotalItems += l.Quantity
		resp.Subtotal = resp.Subtotal.Add(l.TotalPrice())
	}
	return resp
}

// --- Orders ---

type OrderAddressRequest struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line_1" binding:"required"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	PostalCode   string `json:"postal_code" binding:"required"`
	Country      string `json:"country" binding:"required"`
	Phone        string `json:"phone"`
}

func (r *OrderAddressRequest) Model() *model.OrderAddress {
	return &model.OrderAddress{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Company:      r.Company,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
		Phone:        r.Phone,
	}
}

type CreateOrderRequest struct {
	ShippingAddress OrderAddressRequest  `json:"shipping_address" binding:"required"`
	BillingAddress  *OrderAddressRequest `json:"billing_address"`
	TaxAmount       *decimal.Decimal     `json:"tax_amount"`
	ShippingAmount  *decimal.Decimal     `json:"shipping_amount"`
	DiscountAmount  *decimal.Decimal     `json:"discount_amount"`
	CouponCode      string               `json:"coupon_code"`
	Notes           string               `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListOrdersRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Status string `form:"status"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	VariantName *string         `json:"variant_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          model.OrderStatus   `json:"status"`
	PaymentStatus   model.PaymentStatus `json:"payment_status"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	ShippingAmount  decimal.Decimal     `json:"shipping_amount"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Currency        string              `json:"currency"`
	Notes           string              `json:"notes,omitempty"`
	BillingAddress  *model.OrderAddress `json:"billing_address,omitempty"`
	ShippingAddress *model.OrderAddress `json:"shipping_address,omitempty"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
}

func NewOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		ShippingAmount:  o.ShippingAmount,
		DiscountAmount:  o.DiscountAmount,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		Notes:           o.Notes,
		BillingAddress:  o.BillingAddress,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		ConfirmedAt:     o.ConfirmedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
	}
	for i := range o.Items {
		item := &o.Items[i]
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			VariantName: item.VariantName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return resp
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// --- Reviews ---

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

type ReviewResponse struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	ProductID          uuid.UUID `json:"product_id"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title,omitempty"`
	Comment            string    `json:"comment,omitempty"`
	IsVerifiedPurchase bool      `json:"is_verified_purchase"`
	CreatedAt          time.Time `json:"created_at"`
}

func NewReviewResponse(r *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		ProductID:          r.ProductID,
		Rating:             r.Rating,
		Title:              r.Title,
		Comment:            r.Comment,
		IsVerifiedPurchase: r.IsVerifiedPurchase,
		CreatedAt:          r.CreatedAt,
	}
}

// --- Addresses ---

type AddressRequest struct {
	Type         string `json:"type" binding:"required,oneof=billing shipping"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Company      string `json:"company"`
	AddressLine1 string `json:"address_line_1" binding:"required"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	PostalCode   string `json:"postal_code" binding:"required"`
	Country      string `json:"country" binding:"required"`
	Phone        string `json:"phone"`
	IsDefault    bool   `json:"is_default"`
}

type AddressResponse struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Company      string    `json:"company,omitempty"`
	AddressLine1 string    `json:"address_line_1"`
	AddressLine2 string    `json:"address_line_2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewAddressResponse(a *model.Address) AddressResponse {
	return AddressResponse{
		ID:           a.ID,
		Type:         a.Type,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
		IsDefault:    a.IsDefault,
		CreatedAt:    a.CreatedAt,
	}
}

// --- Wishlist ---

type AddWishlistItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

// --- Coupons ---

type CreateCouponRequest struct {
	Code              string           `json:"code" binding:"required"`
	Name              string           `json:"name" binding:"required"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discount_type" binding:"required,oneof=percentage fixed_amount"`
	DiscountValue     decimal.Decimal  `json:"discount_value" binding:"required"`
	MinOrderAmount    decimal.Decimal  `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	UsageLimit        *int             `json:"usage_limit"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidUntil        *time.Time       `json:"valid_until"`
}

type CouponResponse struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	ValidUntil     *time.Time      `json:"valid_until,omitempty"`
}

func NewCouponResponse(c *model.Coupon) CouponResponse {
	return CouponResponse{
		ID:             c.ID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		ValidUntil:     c.ValidUntil,
	}
}

// --- Errors ---

type ErrorResponse struct {
	Error string `json:"error"`
}
