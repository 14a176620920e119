package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/repository"
	"github.com/aisessions/server/internal/util"
)

// AdminService owns the admin roster and answers every "may this user do
// that" question asked by the other services.
type AdminService struct {
	adminRepo repository.AdminRepository
	userRepo  repository.UserRepository
}

func NewAdminService(adminRepo repository.AdminRepository, userRepo repository.UserRepository) *AdminService {
	return &AdminService{
		adminRepo: adminRepo,
		userRepo:  userRepo,
	}
}

func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := s.adminRepo.IsAdmin(ctx, userID)
	if err != nil {
		return false, apperrors.Database(fmt.Errorf("check admin: %w", err))
	}
	return ok, nil
}

// RequireAdmin returns NOT_ADMIN unless actorID is on the roster.
func (s *AdminService) RequireAdmin(ctx context.Context, actorID string) error {
	ok, err := s.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotAdmin()
	}
	return nil
}

func (s *AdminService) List(ctx context.Context, actorID string) ([]model.AdminListing, error) {
	if err := s.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	admins, err := s.adminRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list admins: %w", err))
	}
	if admins == nil {
		admins = []model.AdminListing{}
	}
	return admins, nil
}

func (s *AdminService) Grant(ctx context.Context, actorID, email string) (*model.AdminUser, error) {
	if err := s.RequireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.grantByEmail(ctx, email, &actorID)
}

// Promote grants admin rights without an acting admin. Used to seed the
// first admin from the command line.
func (s *AdminService) Promote(ctx context.Context, email string) (*model.AdminUser, error) {
	return s.grantByEmail(ctx, email, nil)
}

func (s *AdminService) grantByEmail(ctx context.Context, email string, createdBy *string) (*model.AdminUser, error) {
	email = util.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.MissingRequired("email")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find user by email: %w", err))
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	admin, err := s.adminRepo.Create(ctx, user.ID, createdBy)
	if repository.IsUniqueViolation(err) {
		return nil, apperrors.AlreadyExists("Admin")
	}
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("create admin: %w", err))
	}

	log.Info().
		Str("userId", user.ID).
		Str("email", email).
		Msg("admin granted")

	return admin, nil
}

func (s *AdminService) Revoke(ctx context.Context, actorID, userID string) error {
	if err := s.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	if actorID == userID {
		return apperrors.SelfRemoval()
	}

	removed, err := s.adminRepo.Delete(ctx, userID)
	if err != nil {
		return apperrors.Database(fmt.Errorf("delete admin: %w", err))
	}
	if !removed {
		return apperrors.NotFound("Admin")
	}

	log.Info().Str("userId", userID).Str("revokedBy", actorID).Msg("admin revoked")
	return nil
}

// Bootstrap grants admin to user when their email is listed in emails. It
// runs on every sign-in but grants at most once per user, so a revocation
// through the roster sticks.
func (s *AdminService) Bootstrap(ctx context.Context, user *model.User, emails []string) error {
	email := util.NormalizeEmail(user.Email)
	if !slices.ContainsFunc(emails, func(candidate string) bool {
		return util.NormalizeEmail(candidate) == email
	}) {
		return nil
	}

	granted, err := s.adminRepo.GrantBootstrap(ctx, user.ID)
	if err != nil {
		return apperrors.Database(fmt.Errorf("bootstrap admin: %w", err))
	}
	if granted {
		log.Info().Str("userId", user.ID).Str("email", email).Msg("bootstrap admin granted")
	}
	return nil
}
