package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kitchenware/storefront/internal/model"
	"github.com/kitchenware/storefront/internal/repository"
)

var (
	ErrLastAdmin    = errors.New("cannot remove the last administrator")
	ErrInvalidRole  = errors.New("invalid role")
	ErrUserNotFound = errors.New("user not found")
)

type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type UserWithRole struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	Phone     string
	Role      model.Role
	CreatedAt time.Time
}

type RoleService struct {
	profileRepo repository.ProfileRepository
	roleRepo    repository.RoleRepository
	sessions    SessionRevoker
	log         *slog.Logger
}

func NewRoleService(profileRepo repository.ProfileRepository, roleRepo repository.RoleRepository, sessions SessionRevoker, log *slog.Logger) *RoleService {
	return &RoleService{profileRepo: profileRepo, roleRepo: roleRepo, sessions: sessions, log: log}
}

// guardLastAdmin rejects a change that would leave no administrator: the
// target is the only user holding admin and is about to lose it.
func guardLastAdmin(adminIDs []uuid.UUID, target uuid.UUID, next model.Role) error {
	if next == model.RoleAdmin {
		return nil
	}
	holders := make(map[uuid.UUID]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		holders[id] = struct{}{}
	}
	if _, isAdmin := holders[target]; isAdmin && len(holders) == 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *RoleService) ListUsers(ctx context.Context, search string) ([]UserWithRole, error) {
	profiles, err := s.profileRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	assignments, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	byUser := make(map[uuid.UUID][]model.Role)
	for _, a := range assignments {
		byUser[a.UserID] = append(byUser[a.UserID], a.Role)
	}

	users := make([]UserWithRole, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, UserWithRole{
			ID:        p.ID,
			FullName:  p.FullName,
			Email:     p.Email,
			Phone:     p.Phone,
			Role:      model.EffectiveRole(byUser[p.ID]),
			CreatedAt: p.CreatedAt,
		})
	}
	return users, nil
}

func (s *RoleService) ChangeRole(ctx context.Context, target uuid.UUID, role model.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	profile, err := s.profileRepo.GetByID(ctx, target)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return ErrUserNotFound
	}

	err = s.roleRepo.SetRole(ctx, target, role, func(adminIDs []uuid.UUID) error {
		return guardLastAdmin(adminIDs, target, role)
	})
	if err != nil {
		if errors.Is(err, ErrLastAdmin) {
			return err
		}
		return fmt.Errorf("set role: %w", err)
	}
	s.log.Info("role changed", "user_id", target, "role", role)
	return nil
}

// DeleteUser removes the user's roles and profile and then revokes every
// session, so the account cannot keep acting on an old token.
func (s *RoleService) DeleteUser(ctx context.Context, target uuid.UUID) error {
	err := s.roleRepo.DeleteUser(ctx, target, func(adminIDs []uuid.UUID) error {
		return guardLastAdmin(adminIDs, target, model.RoleCustomer)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrLastAdmin):
			return err
		case errors.Is(err, pgx.ErrNoRows):
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, target); err != nil {
		s.log.Error("revoke sessions of deleted user", "user_id", target, "error", err)
	}
	s.log.Info("user deleted", "user_id", target)
	return nil
}
