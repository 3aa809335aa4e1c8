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

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	List(ctx context.Context, search string) ([]model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
}

type pgProfileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &pgProfileRepo{pool: pool}
}

// GetByID returns nil, nil when the profile does not exist.
func (r *pgProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, phone, created_at, updated_at FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *pgProfileRepo) List(ctx context.Context, search string) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, full_name, email, phone, created_at, updated_at FROM profiles
		 WHERE ($1 = '' OR full_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		 ORDER BY created_at DESC`, search,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *pgProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE profiles SET full_name = $2, phone = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		profile.ID, profile.FullName, profile.Phone,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
