package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tealeg/xlsx"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/repository"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type OrderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetForUser hides orders of other users behind ErrOrderNotFound.
func (s *OrderService) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order, optionally narrowed to one order status.
func (s *OrderService) ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, err := s.orderRepo.ListAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return mapOrderErr(s.orderRepo.UpdateOrderStatus(ctx, id, status), "update order status")
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return mapOrderErr(s.orderRepo.UpdatePaymentStatus(ctx, id, status), "update payment status")
}

func mapOrderErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrOrderNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

var exportHeaders = []string{
	"Order ID", "Date", "Customer", "Email", "Phone", "Shipping Address",
	"Items", "Total", "Payment Method", "Payment Status", "Order Status", "Screenshot",
}

// Export writes all orders as an xlsx workbook with one row per order.
func (s *OrderService) Export(ctx context.Context, w io.Writer) error {
	orders, err := s.orderRepo.ListAll(ctx, "")
	if err != nil {
		return fmt.Errorf("list all orders: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetString(o.ID.String())
		row.AddCell().SetString(o.CreatedAt.Format("2006-01-02 15:04:05"))
		if o.Customer != nil {
			row.AddCell().SetString(o.Customer.FullName)
			row.AddCell().SetString(o.Customer.Email)
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(o.Phone)
		row.AddCell().SetString(o.ShippingAddress)

		lines := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, fmt.Sprintf("%s x%d", it.ProductName, it.Quantity))
		}
		row.AddCell().SetString(strings.Join(lines, ", "))

		total, _ := o.TotalAmount.Float64()
		row.AddCell().SetFloat(total)
		row.AddCell().SetString(o.PaymentMethod)
		row.AddCell().SetString(string(o.PaymentStatus))
		row.AddCell().SetString(string(o.OrderStatus))
		if o.ScreenshotURL != nil {
			row.AddCell().SetString(*o.ScreenshotURL)
		} else {
			row.AddCell().SetString("")
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
