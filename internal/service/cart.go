package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/pricing"
	"github.com/kitchenware/storefront/internal/repository"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrInsufficientStock = errors.New("not enough stock")
)

func checkStock(stock, quantity int) error {
	if stock <= 0 {
		return ErrOutOfStock
	}
	if quantity > stock {
		return fmt.Errorf("%w: only %d items available", ErrInsufficientStock, stock)
	}
	return nil
}

// CartAggregator holds one identity's cart joined with live product data.
// The item collection is only ever replaced wholesale by Reload; mutations
// never patch it. A zero userID means no one is signed in.
type CartAggregator struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userID      uuid.UUID
	log         *slog.Logger

	items []model.CartItem
}

func NewCartAggregator(cartRepo repository.CartRepository, productRepo repository.ProductRepository, userID uuid.UUID, log *slog.Logger) *CartAggregator {
	return &CartAggregator{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userID:      userID,
		log:         log.With("user_id", userID),
	}
}

func (a *CartAggregator) UserID() uuid.UUID { return a.userID }

func (a *CartAggregator) Items() []model.CartItem {
	out := make([]model.CartItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *CartAggregator) Count() int {
	n := 0
	for _, it := range a.items {
		n += it.Quantity
	}
	return n
}

func (a *CartAggregator) Totals() pricing.Summary {
	return pricing.Summarize(a.lines())
}

func (a *CartAggregator) lines() []pricing.Line {
	lines := make([]pricing.Line, len(a.items))
	for i, it := range a.items {
		lines[i] = pricing.Line{UnitPrice: it.Product.Price, Quantity: it.Quantity}
	}
	return lines
}

// Reload replaces the collection with the stored rows. On failure the
// previous collection is kept.
func (a *CartAggregator) Reload(ctx context.Context) error {
	if a.userID == uuid.Nil {
		a.items = nil
		return nil
	}
	items, err := a.cartRepo.ListByUser(ctx, a.userID)
	if err != nil {
		a.log.Error("reload cart", "error", err)
		return fmt.Errorf("reload cart: %w", err)
	}
	a.items = items
	return nil
}

// Add merges into the existing line for the product when there is one. The
// resulting quantity may not exceed the product's stock.
func (a *CartAggregator) Add(ctx context.Context, productID uuid.UUID, quantity int) error {
	if a.userID == uuid.Nil {
		return ErrUnauthenticated
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	for _, it := range a.items {
		if it.ProductID == productID {
			return a.UpdateQuantity(ctx, it.ID, it.Quantity+quantity)
		}
	}

	product, err := a.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := checkStock(product.Stock, quantity); err != nil {
		return err
	}
	if err := a.cartRepo.Insert(ctx, a.userID, productID, quantity); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	a.reloadAfterMutation(ctx)
	return nil
}

// UpdateQuantity removes the line when quantity is below one.
func (a *CartAggregator) UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if a.userID == uuid.Nil {
		return ErrUnauthenticated
	}
	if quantity < 1 {
		return a.Remove(ctx, itemID)
	}
	for _, it := range a.items {
		if it.ID == itemID {
			if err := checkStock(it.Product.Stock, quantity); err != nil {
				return err
			}
			break
		}
	}
	if err := a.cartRepo.UpdateQuantity(ctx, a.userID, itemID, quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("update cart item: %w", err)
	}
	a.reloadAfterMutation(ctx)
	return nil
}

func (a *CartAggregator) Remove(ctx context.Context, itemID uuid.UUID) error {
	if a.userID == uuid.Nil {
		return ErrUnauthenticated
	}
	if err := a.cartRepo.Delete(ctx, a.userID, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("remove cart item: %w", err)
	}
	a.reloadAfterMutation(ctx)
	return nil
}

func (a *CartAggregator) Clear(ctx context.Context) error {
	if a.userID == uuid.Nil {
		return nil
	}
	if err := a.cartRepo.ClearByUser(ctx, a.userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	a.reloadAfterMutation(ctx)
	return nil
}

// The mutation already succeeded; a failed reload only leaves stale data.
func (a *CartAggregator) reloadAfterMutation(ctx context.Context) {
	_ = a.Reload(ctx)
}

// CartFactory builds loaded aggregators scoped to one verified identity.
type CartFactory struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	log         *slog.Logger
}

func NewCartFactory(cartRepo repository.CartRepository, productRepo repository.ProductRepository, log *slog.Logger) *CartFactory {
	return &CartFactory{cartRepo: cartRepo, productRepo: productRepo, log: log}
}

func (f *CartFactory) For(ctx context.Context, userID uuid.UUID) (*CartAggregator, error) {
	agg := NewCartAggregator(f.cartRepo, f.productRepo, userID, f.log)
	if err := agg.Reload(ctx); err != nil {
		return nil, err
	}
	return agg, nil
}
