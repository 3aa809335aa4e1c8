package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/storage"
)

type productFixture struct {
	svc        *ProductService
	products   *mockProductRepo
	categories *mockCategoryRepo
	offers     *mockOfferRepo
	uploader   *mockUploader
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	client, _ := newRedis(t)
	f := &productFixture{
		products:   newMockProductRepo(),
		categories: &mockCategoryRepo{categories: make(map[uuid.UUID]*model.Category)},
		offers:     &mockOfferRepo{offers: make(map[uuid.UUID]decimal.Decimal)},
		uploader:   &mockUploader{},
	}
	f.svc = NewProductService(f.products, f.categories, f.offers, f.uploader, client, testLogger())
	return f
}

func (f *productFixture) addCategory(name string) uuid.UUID {
	id := uuid.New()
	f.categories.categories[id] = &model.Category{ID: id, Name: name}
	return id
}

func TestProductService_GetByIDCaches(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	cat := f.addCategory("Cookware")
	p := f.products.add("Wok", 120, 7)
	p.CategoryID = &cat

	first, err := f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cookware", first.CategoryName)

	second, err := f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, 1, f.products.getCalls)
}

func TestProductService_UpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	p := f.products.add("Wok", 120, 7)

	_, err := f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)

	name := "Carbon Steel Wok"
	_, err = f.svc.Update(ctx, p.ID, dto.UpdateProductRequest{Name: &name})
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
}

func TestProductService_GetByIDNotFound(t *testing.T) {
	f := newProductFixture(t)

	_, err := f.svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_SetOffer(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	p := f.products.add("Knife Block", 100, 5)

	twenty := decimal.NewFromInt(20)
	require.NoError(t, f.svc.SetOffer(ctx, p.ID, &twenty))

	got, err := f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(got.DiscountedPrice))
	require.NotNil(t, got.DiscountPercentage)

	require.NoError(t, f.svc.SetOffer(ctx, p.ID, nil))
	got, err = f.svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DiscountPercentage)
	assert.True(t, got.Price.Equal(got.DiscountedPrice))

	tooMuch := decimal.NewFromInt(150)
	assert.ErrorIs(t, f.svc.SetOffer(ctx, p.ID, &tooMuch), ErrInvalidDiscount)
	assert.ErrorIs(t, f.svc.SetOffer(ctx, uuid.New(), &twenty), ErrProductNotFound)
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	cat := f.addCategory("Bakeware")
	tray := f.products.add("Baking Tray", 40, 12)
	tray.CategoryID = &cat
	tray.IsFeatured = true
	f.products.add("Peeler", 8, 30)
	f.offers.offers[tray.ID] = decimal.NewFromInt(50)

	all, err := f.svc.List(ctx, dto.ListProductsRequest{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	byCat, err := f.svc.List(ctx, dto.ListProductsRequest{Category: cat.String(), Limit: 50})
	require.NoError(t, err)
	require.Len(t, byCat.Products, 1)
	assert.True(t, decimal.NewFromInt(20).Equal(byCat.Products[0].DiscountedPrice))

	featured, err := f.svc.List(ctx, dto.ListProductsRequest{Featured: true, Limit: FeaturedLimit})
	require.NoError(t, err)
	assert.Len(t, featured.Products, 1)

	bad, err := f.svc.List(ctx, dto.ListProductsRequest{Category: "not-a-uuid", Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, bad.Products)
}

func TestProductService_CreateChecksCategory(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	missing := uuid.New()

	_, err := f.svc.Create(ctx, dto.CreateProductRequest{Name: "Pot", Price: decimal.NewFromInt(10), CategoryID: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	cat := f.addCategory("Pots")
	resp, err := f.svc.Create(ctx, dto.CreateProductRequest{Name: "Pot", Price: decimal.NewFromInt(10), Stock: 3, CategoryID: &cat})
	require.NoError(t, err)
	assert.Contains(t, f.products.products, resp.ID)
}

func TestProductService_UploadImage(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	p := f.products.add("Cutting Board", 25, 6)

	url, err := f.svc.UploadImage(ctx, p.ID, "board.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, storage.BucketProductImages, f.uploader.bucket)
	assert.True(t, strings.HasSuffix(f.uploader.key, ".jpg"))
	require.NotNil(t, f.products.products[p.ID].ImageURL)
	assert.Equal(t, url, *f.products.products[p.ID].ImageURL)
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	p := f.products.add("Sieve", 9, 2)

	require.NoError(t, f.svc.Delete(ctx, p.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, p.ID), ErrProductNotFound)
	_, err := f.svc.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_UploadImageCleansUpOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newProductFixture(t)
	p := f.products.add("Cutting Board", 25, 6)
	f.products.setImageErr = errBoom

	_, err := f.svc.UploadImage(ctx, p.ID, "board.jpg", strings.NewReader("jpeg"))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{storage.BucketProductImages + "/" + f.uploader.key}, f.uploader.deleted)
	assert.Nil(t, f.products.products[p.ID].ImageURL)
}
