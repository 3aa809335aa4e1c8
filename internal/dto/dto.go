package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenware/storefront/internal/model"
)

// --- Auth ---

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type ResetPasswordEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Phone    string     `json:"phone"`
	Role     model.Role `json:"role"`
}

type SessionResponse struct {
	Status  string     `json:"status"`
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	Email   string     `json:"email,omitempty"`
	Role    model.Role `json:"role,omitempty"`
	IsAdmin bool       `json:"is_admin"`
	Notice  string     `json:"notice,omitempty"`
}

// --- Profile ---

type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
}

type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Catalog ---

type CategoryResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
}

type ListProductsRequest struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Featured bool   `form:"featured"`
	Limit    int    `form:"limit,default=50" binding:"min=1,max=100"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock_quantity" binding:"min=0"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	IsFeatured  bool            `json:"is_featured"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock_quantity" binding:"omitempty,min=0"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	IsFeatured  *bool            `json:"is_featured"`
}

// SetOfferRequest with a null discount removes the product's offer.
type SetOfferRequest struct {
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
}

type ProductResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	DiscountedPrice    decimal.Decimal  `json:"discounted_price"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	Stock              int              `json:"stock_quantity"`
	CategoryID         *uuid.UUID       `json:"category_id,omitempty"`
	CategoryName       string           `json:"category_name,omitempty"`
	ImageURL           *string          `json:"image_url,omitempty"`
	IsFeatured         bool             `json:"is_featured"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

type BannerRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  *string `json:"description"`
	ImageURL     string  `json:"image_url" binding:"required"`
	LinkURL      *string `json:"link_url"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder int     `json:"display_order"`
}

type BannerResponse struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	ImageURL     string    `json:"image_url"`
	LinkURL      *string   `json:"link_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest accepts any quantity; below one removes the line.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartResponse struct {
	Items          []CartItemResponse `json:"items"`
	ItemCount      int                `json:"item_count"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DeliveryCharge decimal.Decimal    `json:"delivery_charge"`
	Total          decimal.Decimal    `json:"total"`
}

type CartItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  *string         `json:"image_url,omitempty"`
	Stock     int             `json:"stock_quantity"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// --- Orders ---

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PaymentMethod   string              `json:"payment_method"`
	PaymentStatus   model.PaymentStatus `json:"payment_status"`
	OrderStatus     model.OrderStatus   `json:"order_status"`
	ShippingAddress string              `json:"shipping_address"`
	Phone           string              `json:"phone"`
	ScreenshotURL   *string             `json:"transaction_screenshot_url,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	Customer        *ProfileResponse    `json:"customer,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	Status model.PaymentStatus `json:"status" binding:"required"`
}

// --- Admin ---

type AdminUserResponse struct {
	ID        uuid.UUID  `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type ChangeRoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

type DashboardResponse struct {
	TotalProducts    int             `json:"total_products"`
	LowStockProducts int             `json:"low_stock_products"`
	TotalOrders      int             `json:"total_orders"`
	PendingOrders    int             `json:"pending_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
}
