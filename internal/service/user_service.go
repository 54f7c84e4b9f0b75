package service

import (
	"context"

	"github.com/helpdesk-kit/helpdesk-api/internal/auth"
	"github.com/helpdesk-kit/helpdesk-api/internal/authz"
	"github.com/helpdesk-kit/helpdesk-api/internal/domain"
	"github.com/helpdesk-kit/helpdesk-api/internal/repository"
	apperrors "github.com/helpdesk-kit/helpdesk-api/pkg/util/errorutil"
)

// UserService manages the user roster.
type UserService struct {
	store      repository.Store
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(store repository.Store, bcryptCost int) *UserService {
	return &UserService{store: store, bcryptCost: bcryptCost}
}

// UserUpdateInput carries optional user field updates. A nil pointer means
// the field was not submitted.
type UserUpdateInput struct {
	Email    *string
	Role     *domain.Role
	Password *string
}

// Update applies the permitted subset of the submitted fields. Users may
// rotate their own password; everything else is manager territory. Fields
// the actor lacks rights to are dropped silently, mirroring ticket updates.
func (s *UserService) Update(ctx context.Context, actor domain.Actor, targetID int64, input UserUpdateInput) (*domain.User, error) {
	if !authz.CanUpdateUser(actor, targetID) {
		return nil, apperrors.NewForbidden("insufficient permissions")
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(*input.Role)})
	}

	var updated *domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, targetID)
		if err != nil {
			return err
		}

		if input.Email != nil && authz.CanChangeEmail(actor) {
			existing, err := tx.Users().GetByEmail(ctx, *input.Email)
			if err != nil && !apperrors.IsCode(err, "NOT_FOUND") {
				return err
			}
			if existing != nil && existing.ID != targetID {
				return apperrors.NewConflict("email already exists", nil)
			}
			user.Email = *input.Email
		}
		if input.Role != nil && authz.CanChangeRole(actor) {
			user.Role = *input.Role
		}
		if input.Password != nil && authz.CanChangePassword(actor, targetID) {
			hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a user. Manager only, and never the manager's own
// account.
func (s *UserService) Delete(ctx context.Context, actor domain.Actor, targetID int64) error {
	if !authz.CanDeleteUser(actor.Role) {
		return apperrors.NewForbidden("insufficient permissions")
	}
	if targetID == actor.UserID {
		return apperrors.NewInvalidOperation("cannot delete your own account")
	}
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().GetByID(ctx, targetID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, targetID)
	})
}

// ListTechnicians returns the technician roster for assignment. Manager
// only.
func (s *UserService) ListTechnicians(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !authz.CanListTechnicians(actor.Role) {
		return nil, apperrors.NewForbidden("insufficient permissions")
	}
	technicians, err := s.store.Users().ListByRole(ctx, domain.RoleTechnician)
	if err != nil {
		return nil, err
	}
	if technicians == nil {
		technicians = []domain.User{}
	}
	return technicians, nil
}
