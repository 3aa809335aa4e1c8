package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenware/storefront/internal/model"
)

// AdminCheck inspects the current admin holders, locked for the duration of
// the surrounding transaction, and vetoes the mutation by returning an error.
type AdminCheck func(adminIDs []uuid.UUID) error

type RoleRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	ListAll(ctx context.Context) ([]model.RoleAssignment, error)
	SetRole(ctx context.Context, userID uuid.UUID, role model.Role, check AdminCheck) error
	// DeleteUser removes the user's role rows and profile. It reports
	// pgx.ErrNoRows when no profile existed.
	DeleteUser(ctx context.Context, userID uuid.UUID, check AdminCheck) error
}

type pgRoleRepo struct{ pool *pgxpool.Pool }

func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &pgRoleRepo{pool: pool}
}

func (r *pgRoleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *pgRoleRepo) ListAll(ctx context.Context) ([]model.RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, role FROM user_roles`)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	defer rows.Close()

	var out []model.RoleAssignment
	for rows.Next() {
		var a model.RoleAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role); err != nil {
			return nil, fmt.Errorf("scan role assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgRoleRepo) SetRole(ctx context.Context, userID uuid.UUID, role model.Role, check AdminCheck) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockAdmins(ctx, tx, check); err != nil {
		return err
	}

	// One row per user; stale or duplicate rows go with the old role.
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO user_roles (id, user_id, role) VALUES ($1, $2, $3)`,
		uuid.New(), userID, role,
	)
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgRoleRepo) DeleteUser(ctx context.Context, userID uuid.UUID, check AdminCheck) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockAdmins(ctx, tx, check); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete roles: %w", err)
	}
	ct, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func lockAdmins(ctx context.Context, tx pgx.Tx, check AdminCheck) error {
	rows, err := tx.Query(ctx, `SELECT user_id FROM user_roles WHERE role = 'admin' FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("scan admins: %w", err)
	}
	if check == nil {
		return nil
	}
	return check(ids)
}
