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

type CategoryRepository interface {
	List(ctx context.Context, limit int) ([]model.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
}

type pgCategoryRepo struct{ pool *pgxpool.Pool }

func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &pgCategoryRepo{pool: pool}
}

func (r *pgCategoryRepo) List(ctx context.Context, limit int) ([]model.Category, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, display_order FROM categories ORDER BY display_order, name LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c := &model.Category{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, display_order FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

type OfferRepository interface {
	// ActiveFor returns the first active offer for the product, or nil.
	ActiveFor(ctx context.Context, productID uuid.UUID) (*model.Offer, error)
	ListActive(ctx context.Context) ([]model.Offer, error)
	// Upsert replaces the product's offers with a single one at the given
	// percentage; a nil percentage removes all offers.
	Upsert(ctx context.Context, productID uuid.UUID, percent *decimal.Decimal) error
}

type pgOfferRepo struct{ pool *pgxpool.Pool }

func NewOfferRepository(pool *pgxpool.Pool) OfferRepository {
	return &pgOfferRepo{pool: pool}
}

func (r *pgOfferRepo) ActiveFor(ctx context.Context, productID uuid.UUID) (*model.Offer, error) {
	o := &model.Offer{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, product_id, discount_percentage, is_active FROM offers
		 WHERE product_id = $1 AND is_active ORDER BY created_at LIMIT 1`, productID,
	).Scan(&o.ID, &o.ProductID, &o.DiscountPercentage, &o.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (r *pgOfferRepo) ListActive(ctx context.Context) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, discount_percentage, is_active FROM offers WHERE is_active ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var out []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(&o.ID, &o.ProductID, &o.DiscountPercentage, &o.IsActive); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *pgOfferRepo) Upsert(ctx context.Context, productID uuid.UUID, percent *decimal.Decimal) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM offers WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear offers: %w", err)
	}
	if percent != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO offers (id, product_id, discount_percentage, is_active) VALUES ($1, $2, $3, TRUE)`,
			uuid.New(), productID, *percent,
		)
		if err != nil {
			return fmt.Errorf("insert offer: %w", err)
		}
	}
	return tx.Commit(ctx)
}
