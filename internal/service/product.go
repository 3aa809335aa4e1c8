package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/kitchenware/storefront/internal/dto"
	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/pricing"
	"github.com/kitchenware/storefront/internal/repository"
	"github.com/kitchenware/storefront/internal/storage"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidDiscount  = errors.New("discount percentage must be between 0 and 100")
	ErrCategoryNotFound = errors.New("category not found")
)

// ObjectStore is an Uploader that can also remove what it stored.
type ObjectStore interface {
	Uploader
	Delete(ctx context.Context, bucket, key string) error
}

const (
	productCacheTTL    = 60 * time.Second
	productCachePrefix = "product:"
	FeaturedLimit      = 8
)

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	offerRepo    repository.OfferRepository
	objects      ObjectStore
	redisClient  *redis.Client
	log          *slog.Logger
	sf           singleflight.Group
	now          func() time.Time
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	offerRepo repository.OfferRepository,
	objects ObjectStore,
	redisClient *redis.Client,
	log *slog.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		offerRepo:    offerRepo,
		objects:      objects,
		redisClient:  redisClient,
		log:          log,
		now:          time.Now,
	}
}

func (s *ProductService) Categories(ctx context.Context, limit int) ([]model.Category, error) {
	cats, err := s.categoryRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetByID serves from Redis when possible; concurrent misses for the same id
// share one database read.
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCachePrefix + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn("product cache read", "product_id", id, "error", err)
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.loadProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	resp := v.(dto.ProductResponse)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return &resp, nil
}

func (s *ProductService) loadProduct(ctx context.Context, id uuid.UUID) (dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return dto.ProductResponse{}, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return dto.ProductResponse{}, ErrProductNotFound
	}

	offer, err := s.offerRepo.ActiveFor(ctx, id)
	if err != nil {
		return dto.ProductResponse{}, fmt.Errorf("get offer: %w", err)
	}
	var percent *decimal.Decimal
	if offer != nil {
		percent = &offer.DiscountPercentage
	}

	resp := toProductResponse(product, percent)
	if product.CategoryID != nil {
		cat, err := s.categoryRepo.GetByID(ctx, *product.CategoryID)
		if err != nil {
			s.log.Warn("product category lookup", "product_id", id, "error", err)
		} else if cat != nil {
			resp.CategoryName = cat.Name
		}
	}
	return resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	filter := repository.ProductFilter{Search: req.Search, FeaturedOnly: req.Featured, Limit: req.Limit}
	if req.Category != "" {
		catID, err := uuid.Parse(req.Category)
		if err != nil {
			return &dto.ProductListResponse{Products: []dto.ProductResponse{}}, nil
		}
		filter.CategoryID = &catID
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	offers, err := s.offerRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	discounts := make(map[uuid.UUID]decimal.Decimal, len(offers))
	for _, o := range offers {
		if _, seen := discounts[o.ProductID]; !seen {
			discounts[o.ProductID] = o.DiscountPercentage
		}
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		var percent *decimal.Decimal
		if d, ok := discounts[products[i].ID]; ok {
			percent = &d
		}
		items = append(items, toProductResponse(&products[i], percent))
	}
	return &dto.ProductListResponse{Products: items, Total: len(items)}, nil
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		IsFeatured:  req.IsFeatured,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product, nil)
	return &resp, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
	}
	if req.IsFeatured != nil {
		product.IsFeatured = *req.IsFeatured
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product, nil)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

// UploadImage stores the file in the product-images bucket and points the
// product at it. The object is removed again if the product row cannot be
// updated.
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, filename string, r io.Reader) (string, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return "", ErrProductNotFound
	}

	key := fmt.Sprintf("%s-%d.%s", id, s.now().UnixMilli(), fileExt(filename))
	imageURL, err := s.objects.Upload(ctx, storage.BucketProductImages, key, r)
	if err != nil {
		return "", fmt.Errorf("upload product image: %w", err)
	}
	if err := s.productRepo.SetImage(ctx, id, imageURL); err != nil {
		if derr := s.objects.Delete(ctx, storage.BucketProductImages, key); derr != nil {
			s.log.Warn("remove unattached product image", "product_id", id, "key", key, "error", derr)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProductNotFound
		}
		return "", fmt.Errorf("set product image: %w", err)
	}
	s.invalidateCache(ctx, id)
	return imageURL, nil
}

// SetOffer replaces the product's active discount. nil removes it.
func (s *ProductService) SetOffer(ctx context.Context, id uuid.UUID, percent *decimal.Decimal) error {
	if percent != nil && (percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100))) {
		return ErrInvalidDiscount
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.offerRepo.Upsert(ctx, id, percent); err != nil {
		return fmt.Errorf("set offer: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	cat, err := s.categoryRepo.GetByID(ctx, *id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if cat == nil {
		return ErrCategoryNotFound
	}
	return nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, productCachePrefix+id.String())
	}
}

func toProductResponse(p *model.Product, percent *decimal.Decimal) dto.ProductResponse {
	return dto.ProductResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		DiscountedPrice:    pricing.DiscountedPrice(p.Price, percent),
		DiscountPercentage: percent,
		Stock:              p.Stock,
		CategoryID:         p.CategoryID,
		ImageURL:           p.ImageURL,
		IsFeatured:         p.IsFeatured,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
