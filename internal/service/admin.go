package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/repository"
)

var ErrBannerNotFound = errors.New("banner not found")

// ActiveBannerLimit caps the storefront carousel.
const ActiveBannerLimit = 3

type BannerService struct {
	bannerRepo repository.BannerRepository
}

func NewBannerService(bannerRepo repository.BannerRepository) *BannerService {
	return &BannerService{bannerRepo: bannerRepo}
}

func (s *BannerService) ListActive(ctx context.Context) ([]model.Banner, error) {
	banners, err := s.bannerRepo.List(ctx, true, ActiveBannerLimit)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	return banners, nil
}

func (s *BannerService) ListAll(ctx context.Context) ([]model.Banner, error) {
	banners, err := s.bannerRepo.List(ctx, false, 0)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	return banners, nil
}

func (s *BannerService) Create(ctx context.Context, banner *model.Banner) error {
	if err := s.bannerRepo.Create(ctx, banner); err != nil {
		return fmt.Errorf("create banner: %w", err)
	}
	return nil
}

func (s *BannerService) Update(ctx context.Context, banner *model.Banner) error {
	if err := s.bannerRepo.Update(ctx, banner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBannerNotFound
		}
		return fmt.Errorf("update banner: %w", err)
	}
	return nil
}

func (s *BannerService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.bannerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBannerNotFound
		}
		return fmt.Errorf("delete banner: %w", err)
	}
	return nil
}

// Toggle flips the banner's active flag and returns the new value.
func (s *BannerService) Toggle(ctx context.Context, id uuid.UUID) (bool, error) {
	banner, err := s.bannerRepo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get banner: %w", err)
	}
	if banner == nil {
		return false, ErrBannerNotFound
	}
	if err := s.bannerRepo.SetActive(ctx, id, !banner.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrBannerNotFound
		}
		return false, fmt.Errorf("toggle banner: %w", err)
	}
	return !banner.IsActive, nil
}

type DashboardService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	log         *slog.Logger
}

func NewDashboardService(productRepo repository.ProductRepository, orderRepo repository.OrderRepository, log *slog.Logger) *DashboardService {
	return &DashboardService{productRepo: productRepo, orderRepo: orderRepo, log: log}
}

// Stats never fails: a metric whose query errors is logged and reported as zero.
func (s *DashboardService) Stats(ctx context.Context) model.DashboardStats {
	stats := model.DashboardStats{TotalRevenue: decimal.Zero}

	if n, err := s.productRepo.Count(ctx); err != nil {
		s.log.Error("dashboard product count", "error", err)
	} else {
		stats.TotalProducts = n
	}
	if n, err := s.productRepo.CountLowStock(ctx); err != nil {
		s.log.Error("dashboard low stock count", "error", err)
	} else {
		stats.LowStockProducts = n
	}
	if total, pending, revenue, err := s.orderRepo.Stats(ctx); err != nil {
		s.log.Error("dashboard order stats", "error", err)
	} else {
		stats.TotalOrders = total
		stats.PendingOrders = pending
		stats.TotalRevenue = revenue
	}
	return stats
}

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, ErrUserNotFound
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, fullName, phone string) (*model.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.FullName = fullName
	p.Phone = phone
	if err := s.profileRepo.Update(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
