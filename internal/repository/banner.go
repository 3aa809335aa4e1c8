package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenware/storefront/internal/model"
)

type BannerRepository interface {
	List(ctx context.Context, activeOnly bool, limit int) ([]model.Banner, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Banner, error)
	Create(ctx context.Context, banner *model.Banner) error
	Update(ctx context.Context, banner *model.Banner) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgBannerRepo struct{ pool *pgxpool.Pool }

func NewBannerRepository(pool *pgxpool.Pool) BannerRepository {
	return &pgBannerRepo{pool: pool}
}

const bannerColumns = `id, title, description, image_url, link_url, is_active, display_order, created_at`

func scanBanner(row pgx.Row, b *model.Banner) error {
	return row.Scan(&b.ID, &b.Title, &b.Description, &b.ImageURL, &b.LinkURL, &b.IsActive, &b.DisplayOrder, &b.CreatedAt)
}

func (r *pgBannerRepo) List(ctx context.Context, activeOnly bool, limit int) ([]model.Banner, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+bannerColumns+` FROM banners WHERE (NOT $1 OR is_active) ORDER BY display_order, created_at LIMIT $2`,
		activeOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()

	var out []model.Banner
	for rows.Next() {
		var b model.Banner
		if err := scanBanner(rows, &b); err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *pgBannerRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Banner, error) {
	b := &model.Banner{}
	if err := scanBanner(r.pool.QueryRow(ctx, `SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id), b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get banner: %w", err)
	}
	return b, nil
}

func (r *pgBannerRepo) Create(ctx context.Context, banner *model.Banner) error {
	banner.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO banners (id, title, description, image_url, link_url, is_active, display_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING created_at`,
		banner.ID, banner.Title, banner.Description, banner.ImageURL, banner.LinkURL, banner.IsActive, banner.DisplayOrder,
	).Scan(&banner.CreatedAt)
	if err != nil {
		return fmt.Errorf("create banner: %w", err)
	}
	return nil
}

func (r *pgBannerRepo) Update(ctx context.Context, banner *model.Banner) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE banners SET title=$2, description=$3, image_url=$4, link_url=$5, is_active=$6, display_order=$7 WHERE id=$1`,
		banner.ID, banner.Title, banner.Description, banner.ImageURL, banner.LinkURL, banner.IsActive, banner.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("update banner: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgBannerRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	ct, err := r.pool.Exec(ctx, `UPDATE banners SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("toggle banner: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgBannerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
