package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User holds sign-in credentials. The customer-facing record is Profile.
type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Profile struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

func (r Role) rank() int {
	if r == RoleAdmin {
		return 1
	}
	return 0
}

// EffectiveRole is the highest privilege among the assigned roles.
// No assignment means customer.
func EffectiveRole(roles []Role) Role {
	eff := RoleCustomer
	for _, r := range roles {
		if r.rank() > eff.rank() {
			eff = r
		}
	}
	return eff
}

type RoleAssignment struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   Role
}

type Category struct {
	ID           uuid.UUID
	Name         string
	Description  string
	DisplayOrder int
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  *uuid.UUID
	ImageURL    *string
	IsFeatured  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Offer struct {
	ID                 uuid.UUID
	ProductID          uuid.UUID
	DiscountPercentage decimal.Decimal
	IsActive           bool
}

type Banner struct {
	ID           uuid.UUID
	Title        string
	Description  *string
	ImageURL     string
	LinkURL      *string
	IsActive     bool
	DisplayOrder int
	CreatedAt    time.Time
}

// CartItem is a stored cart row joined with live product fields.
type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Product   CartProduct
	CreatedAt time.Time
}

type CartProduct struct {
	Name     string
	Price    decimal.Decimal
	ImageURL *string
	Stock    int
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusFailed:
		return true
	}
	return false
}

const PaymentMethodBankTransfer = "bank_transfer"

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TotalAmount     decimal.Decimal
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	OrderStatus     OrderStatus
	ShippingAddress string
	Phone           string
	ScreenshotURL   *string
	Items           []OrderItem
	Customer        *Profile
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem snapshots product name and price at order time; ProductID is informational.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

type DashboardStats struct {
	TotalProducts    int
	LowStockProducts int
	TotalOrders      int
	PendingOrders    int
	TotalRevenue     decimal.Decimal
}

type NotificationKind string

const (
	NotificationOrderReceived NotificationKind = "order_received"
	NotificationPasswordReset NotificationKind = "password_reset"
)

type Notification struct {
	ID      uuid.UUID        `json:"id"`
	Kind    NotificationKind `json:"kind"`
	To      string           `json:"to"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
}
