package service

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/kitchenware/storefront/internal/model"
)

func seedOrder(repo *mockOrderRepo, userID uuid.UUID, total int64) *model.Order {
	o := &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		TotalAmount:     decimal.NewFromInt(total),
		PaymentMethod:   model.PaymentMethodBankTransfer,
		PaymentStatus:   model.PaymentStatusPending,
		OrderStatus:     model.OrderStatusPending,
		ShippingAddress: "7 Canal Road, Faisalabad",
		Phone:           "+923001234567",
		CreatedAt:       time.Now(),
		Items: []model.OrderItem{
			{ID: uuid.New(), ProductName: "Frying Pan", Quantity: 2, UnitPrice: decimal.NewFromInt(600), Subtotal: decimal.NewFromInt(1200)},
		},
	}
	repo.orders[o.ID] = o
	return o
}

func TestOrderService_GetForUser(t *testing.T) {
	ctx := context.Background()
	repo := newMockOrderRepo(nil)
	svc := NewOrderService(repo)
	owner := uuid.New()
	o := seedOrder(repo, owner, 1400)

	got, err := svc.GetForUser(ctx, o.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = svc.GetForUser(ctx, o.ID, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.GetForUser(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateStatuses(t *testing.T) {
	ctx := context.Background()
	repo := newMockOrderRepo(nil)
	svc := NewOrderService(repo)
	o := seedOrder(repo, uuid.New(), 1400)

	require.NoError(t, svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatusShipped))
	assert.Equal(t, model.OrderStatusShipped, repo.orders[o.ID].OrderStatus)

	require.NoError(t, svc.UpdatePaymentStatus(ctx, o.ID, model.PaymentStatusConfirmed))
	assert.Equal(t, model.PaymentStatusConfirmed, repo.orders[o.ID].PaymentStatus)

	assert.ErrorIs(t, svc.UpdateOrderStatus(ctx, o.ID, model.OrderStatus("lost")), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdatePaymentStatus(ctx, o.ID, model.PaymentStatus("maybe")), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateOrderStatus(ctx, uuid.New(), model.OrderStatusConfirmed), ErrOrderNotFound)
}

func TestOrderService_ListAllFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	repo := newMockOrderRepo(nil)
	svc := NewOrderService(repo)
	seedOrder(repo, uuid.New(), 100)
	shipped := seedOrder(repo, uuid.New(), 200)
	shipped.OrderStatus = model.OrderStatusShipped

	all, err := svc.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := svc.ListAll(ctx, model.OrderStatusShipped)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, shipped.ID, only[0].ID)

	_, err = svc.ListAll(ctx, model.OrderStatus("bogus"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderService_Export(t *testing.T) {
	repo := newMockOrderRepo(nil)
	svc := NewOrderService(repo)
	o := seedOrder(repo, uuid.New(), 1400)
	o.Customer = &model.Profile{FullName: "Bilal Ahmed", Email: "bilal@example.com"}

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := file.Sheet["Orders"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)

	header := sheet.Rows[0].Cells
	require.Len(t, header, len(exportHeaders))
	assert.Equal(t, "Order ID", header[0].Value)

	row := sheet.Rows[1].Cells
	assert.Equal(t, o.ID.String(), row[0].Value)
	assert.Equal(t, "Bilal Ahmed", row[2].Value)
	assert.Equal(t, "bilal@example.com", row[3].Value)
	assert.Equal(t, "Frying Pan x2", row[6].Value)
	total, err := strconv.ParseFloat(row[7].Value, 64)
	require.NoError(t, err)
	assert.Equal(t, 1400.0, total)
	assert.Equal(t, "pending", row[10].Value)
}
