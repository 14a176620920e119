package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/aisessions/server/internal/database"
	"github.com/aisessions/server/internal/model"
)

type AdminRepository interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context) ([]model.AdminListing, error)
	// Create fails with a unique violation when the user is already an admin.
	Create(ctx context.Context, userID string, createdBy *string) (*model.AdminUser, error)
	Delete(ctx context.Context, userID string) (bool, error)
	// GrantBootstrap makes the user an admin unless a bootstrap grant was
	// already applied to them. It reports whether a row was added.
	GrantBootstrap(ctx context.Context, userID string) (bool, error)
}

type adminRepo struct {
	db database.DBTX
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM admin_users WHERE user_id = $1)
	`, userID)
	return exists, err
}

func (r *adminRepo) List(ctx context.Context) ([]model.AdminListing, error) {
	var admins []model.AdminListing
	err := r.db.SelectContext(ctx, &admins, `
		SELECT a.*, u.email, u.name
		FROM admin_users a
		JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *adminRepo) Create(ctx context.Context, userID string, createdBy *string) (*model.AdminUser, error) {
	var admin model.AdminUser
	err := r.db.GetContext(ctx, &admin, `
		INSERT INTO admin_users (user_id, created_by)
		VALUES ($1, $2)
		RETURNING *
	`, userID, createdBy)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepo) Delete(ctx context.Context, userID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM admin_users WHERE user_id = $1`, userID))
}

func (r *adminRepo) GrantBootstrap(ctx context.Context, userID string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `
		WITH first AS (
			UPDATE users SET admin_bootstrapped_at = NOW()
			WHERE id = $1 AND admin_bootstrapped_at IS NULL
			RETURNING id
		)
		INSERT INTO admin_users (user_id)
		SELECT id FROM first
		ON CONFLICT (user_id) DO NOTHING
	`, userID))
}
