package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(t *testing.T) (*CartAggregator, *mockCartRepo, *mockProductRepo) {
	t.Helper()
	products := newMockProductRepo()
	carts := newMockCartRepo(products)
	agg := NewCartAggregator(carts, products, uuid.New(), testLogger())
	require.NoError(t, agg.Reload(context.Background()))
	return agg, carts, products
}

func TestCartAggregator_AddMergesIntoExistingLine(t *testing.T) {
	ctx := context.Background()
	agg, carts, products := newTestCart(t)
	pan := products.add("Cast Iron Pan", 100, 20)

	require.NoError(t, agg.Add(ctx, pan.ID, 2))
	require.NoError(t, agg.Add(ctx, pan.ID, 3))

	items := agg.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 1, carts.rows(agg.UserID()))
	assert.Equal(t, 5, agg.Count())
}

func TestCartAggregator_AddUnknownProduct(t *testing.T) {
	agg, carts, _ := newTestCart(t)

	err := agg.Add(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, 0, carts.rows(agg.UserID()))
}

func TestCartAggregator_AddRejectsNonPositiveQuantity(t *testing.T) {
	agg, _, products := newTestCart(t)
	p := products.add("Whisk", 10, 5)

	assert.ErrorIs(t, agg.Add(context.Background(), p.ID, 0), ErrInvalidQuantity)
}

func TestCartAggregator_UpdateQuantityBelowOneRemoves(t *testing.T) {
	for _, qty := range []int{0, -5} {
		agg, carts, products := newTestCart(t)
		ctx := context.Background()
		p := products.add("Chef Knife", 250, 4)
		require.NoError(t, agg.Add(ctx, p.ID, 2))
		itemID := agg.Items()[0].ID

		require.NoError(t, agg.UpdateQuantity(ctx, itemID, qty))
		assert.Empty(t, agg.Items(), "quantity %d", qty)
		assert.Equal(t, 0, carts.rows(agg.UserID()))
	}
}

func TestCartAggregator_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	agg, _, products := newTestCart(t)
	p := products.add("Dutch Oven", 300, 5)
	require.NoError(t, agg.Add(ctx, p.ID, 1))

	require.NoError(t, agg.UpdateQuantity(ctx, agg.Items()[0].ID, 4))
	assert.Equal(t, 4, agg.Items()[0].Quantity)
	assert.True(t, decimal.NewFromInt(1200).Equal(agg.Totals().Subtotal))
}

func TestCartAggregator_AddOutOfStock(t *testing.T) {
	agg, carts, products := newTestCart(t)
	p := products.add("Sold Out Kettle", 100, 0)

	assert.ErrorIs(t, agg.Add(context.Background(), p.ID, 1), ErrOutOfStock)
	assert.Equal(t, 0, carts.rows(agg.UserID()))
}

func TestCartAggregator_AddBeyondStock(t *testing.T) {
	agg, carts, products := newTestCart(t)
	p := products.add("Copper Pot", 100, 2)

	err := agg.Add(context.Background(), p.ID, 50)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "only 2 items available")
	assert.Equal(t, 0, carts.rows(agg.UserID()))
}

func TestCartAggregator_MergeBeyondStock(t *testing.T) {
	ctx := context.Background()
	agg, _, products := newTestCart(t)
	p := products.add("Santoku", 150, 4)
	require.NoError(t, agg.Add(ctx, p.ID, 3))

	assert.ErrorIs(t, agg.Add(ctx, p.ID, 2), ErrInsufficientStock)
	assert.Equal(t, 3, agg.Items()[0].Quantity)

	require.NoError(t, agg.Add(ctx, p.ID, 1))
	assert.Equal(t, 4, agg.Items()[0].Quantity)
}

func TestCartAggregator_UpdateBeyondStock(t *testing.T) {
	ctx := context.Background()
	agg, _, products := newTestCart(t)
	p := products.add("Stand Mixer", 900, 2)
	require.NoError(t, agg.Add(ctx, p.ID, 1))

	assert.ErrorIs(t, agg.UpdateQuantity(ctx, agg.Items()[0].ID, 3), ErrInsufficientStock)
	assert.Equal(t, 1, agg.Items()[0].Quantity)
}

func TestCartAggregator_ForeignItemNotFound(t *testing.T) {
	ctx := context.Background()
	products := newMockProductRepo()
	carts := newMockCartRepo(products)
	p := products.add("Spatula", 15, 10)

	owner := NewCartAggregator(carts, products, uuid.New(), testLogger())
	require.NoError(t, owner.Add(ctx, p.ID, 1))
	itemID := owner.Items()[0].ID

	other := NewCartAggregator(carts, products, uuid.New(), testLogger())
	assert.ErrorIs(t, other.Remove(ctx, itemID), ErrCartItemNotFound)
	assert.ErrorIs(t, other.UpdateQuantity(ctx, itemID, 3), ErrCartItemNotFound)
	assert.Equal(t, 1, carts.rows(owner.UserID()))
}

func TestCartAggregator_Totals(t *testing.T) {
	ctx := context.Background()
	agg, _, products := newTestCart(t)
	a := products.add("Saucepan", 400, 10)
	b := products.add("Ladle", 200, 10)
	require.NoError(t, agg.Add(ctx, a.ID, 2))
	require.NoError(t, agg.Add(ctx, b.ID, 2))

	sum := agg.Totals()
	assert.True(t, decimal.NewFromInt(1200).Equal(sum.Subtotal))
	assert.True(t, decimal.NewFromInt(200).Equal(sum.DeliveryCharge))
	assert.True(t, decimal.NewFromInt(1400).Equal(sum.Total))
}

func TestCartAggregator_ReloadFailureKeepsItems(t *testing.T) {
	ctx := context.Background()
	agg, carts, products := newTestCart(t)
	p := products.add("Colander", 50, 10)
	require.NoError(t, agg.Add(ctx, p.ID, 1))

	carts.listErr = errBoom
	assert.Error(t, agg.Reload(ctx))
	assert.Len(t, agg.Items(), 1)
}

func TestCartAggregator_Unauthenticated(t *testing.T) {
	ctx := context.Background()
	products := newMockProductRepo()
	carts := newMockCartRepo(products)
	agg := NewCartAggregator(carts, products, uuid.Nil, testLogger())

	require.NoError(t, agg.Reload(ctx))
	assert.Empty(t, agg.Items())
	assert.ErrorIs(t, agg.Add(ctx, uuid.New(), 1), ErrUnauthenticated)
	assert.NoError(t, agg.Clear(ctx))
	assert.Equal(t, 0, carts.calls)
}

func TestCartAggregator_Clear(t *testing.T) {
	ctx := context.Background()
	agg, carts, products := newTestCart(t)
	require.NoError(t, agg.Add(ctx, products.add("Tongs", 12, 9).ID, 1))
	require.NoError(t, agg.Add(ctx, products.add("Grater", 18, 9).ID, 2))

	require.NoError(t, agg.Clear(ctx))
	assert.Empty(t, agg.Items())
	assert.Equal(t, 0, carts.rows(agg.UserID()))
}

func TestCartFactory_For(t *testing.T) {
	ctx := context.Background()
	products := newMockProductRepo()
	carts := newMockCartRepo(products)
	factory := NewCartFactory(carts, products, testLogger())
	user := uuid.New()

	first, err := factory.For(ctx, user)
	require.NoError(t, err)
	require.NoError(t, first.Add(ctx, products.add("Pan", 100, 3).ID, 2))

	second, err := factory.For(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count())

	carts.listErr = errBoom
	_, err = factory.For(ctx, user)
	assert.ErrorIs(t, err, errBoom)
}
