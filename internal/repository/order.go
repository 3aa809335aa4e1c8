package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenware/storefront/internal/model"
)

type OrderRepository interface {
	// PlaceOrder inserts the order and its items and empties the owner's
	// cart in one transaction. Nothing is persisted on error.
	PlaceOrder(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	// ListAll returns every order with its items and customer profile.
	ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
	Stats(ctx context.Context) (total, pending int, revenue decimal.Decimal, err error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) PlaceOrder(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, total_amount, payment_method, payment_status, order_status,
		                     shipping_address, phone, transaction_screenshot_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.TotalAmount, order.PaymentMethod, order.PaymentStatus, order.OrderStatus,
		order.ShippingAddress, order.Phone, order.ScreenshotURL,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range order.Items {
		it := &order.Items[i]
		it.ID = uuid.New()
		it.OrderID = order.ID
		batch.Queue(
			`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, order.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return tx.Commit(ctx)
}

const orderColumns = `o.id, o.user_id, o.total_amount, o.payment_method, o.payment_status, o.order_status,
	o.shipping_address, o.phone, o.transaction_screenshot_url, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, o *model.Order, extra ...any) error {
	dest := []any{&o.ID, &o.UserID, &o.TotalAmount, &o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus,
		&o.ShippingAddress, &o.Phone, &o.ScreenshotURL, &o.CreatedAt, &o.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	if err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id), order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	orders := []model.Order{*order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *pgOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	rows.Close()
	return orders, r.attachItems(ctx, orders)
}

func (r *pgOrderRepo) ListAll(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`, p.id, p.full_name, p.email, p.phone
		 FROM orders o LEFT JOIN profiles p ON p.id = o.user_id
		 WHERE ($1 = '' OR o.order_status = $1)
		 ORDER BY o.created_at DESC`, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o     model.Order
			pid   *uuid.UUID
			name  *string
			email *string
			phone *string
		)
		if err := scanOrder(rows, &o, &pid, &name, &email, &phone); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if pid != nil {
			o.Customer = &model.Profile{ID: *pid, FullName: deref(name), Email: deref(email), Phone: deref(phone)}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	rows.Close()
	return orders, r.attachItems(ctx, orders)
}

func (r *pgOrderRepo) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal
		 FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY product_name`, ids,
	)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *pgOrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	return r.updateColumn(ctx, "order_status", id, string(status))
}

func (r *pgOrderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	return r.updateColumn(ctx, "payment_status", id, string(status))
}

// column is never user input.
func (r *pgOrderRepo) updateColumn(ctx context.Context, column string, id uuid.UUID, value string) error {
	ct, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE orders SET %s = $2, updated_at = NOW() WHERE id = $1`, column), id, value,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) Stats(ctx context.Context) (total, pending int, revenue decimal.Decimal, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE order_status = 'pending'),
		        COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'confirmed'), 0)
		 FROM orders`,
	).Scan(&total, &pending, &revenue)
	if err != nil {
		return 0, 0, decimal.Zero, fmt.Errorf("order stats: %w", err)
	}
	return total, pending, revenue, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
