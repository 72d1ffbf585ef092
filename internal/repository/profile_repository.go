package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// ProfileRepository persists profiles linked to login accounts.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `p.id, p.full_name, p.role, p.phone, p.address, p.specialization, p.created_at, p.updated_at, u.email`

// Upsert creates the profile or overwrites every field of an existing one.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO profiles (id, full_name, role, phone, address, specialization, created_at, updated_at)
VALUES (:id, :full_name, :role, :phone, :address, :specialization, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, role = EXCLUDED.role, phone = EXCLUDED.phone,
address = EXCLUDED.address, specialization = EXCLUDED.specialization, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// FindByID returns the profile together with its login email.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.ProfileWithEmail, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p JOIN users u ON u.id = p.id WHERE p.id = $1`
	var profile models.ProfileWithEmail
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// List returns profiles filtered by role and search term.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileWithEmail, int, error) {
	base := "FROM profiles p JOIN users u ON u.id = p.id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("p.role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.full_name) LIKE $%d OR LOWER(u.email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY p.full_name ASC LIMIT %d OFFSET %d", profileColumns, base, size, offset)

	var profiles []models.ProfileWithEmail
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, total, nil
}

// UpdateContact changes only the fields a user may edit on their own profile.
func (r *ProfileRepository) UpdateContact(ctx context.Context, id string, phone, address *string) error {
	const query = `UPDATE profiles SET phone = $2, address = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, phone, address, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile contact: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the profile row.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
