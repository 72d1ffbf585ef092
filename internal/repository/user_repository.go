package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aladab-school-api/internal/models"
)

// UserRepository stores login accounts together with their refresh sessions and
// the audit trail written on their behalf.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository wires the repository to a database handle.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// The role and display name live on the profile; an account without a profile
// scans with empty values and is rejected at sign-in.
const accountColumns = `SELECT u.id, u.email, u.password_hash,
	COALESCE(p.full_name, '') AS full_name,
	COALESCE(p.role, '') AS role,
	u.active, u.last_login, u.created_at, u.updated_at
FROM users u LEFT JOIN profiles p ON p.id = u.id`

// FindByEmail looks an account up case-insensitively.
// A miss wraps sql.ErrNoRows.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findAccount(ctx, "by email", accountColumns+` WHERE LOWER(u.email) = LOWER($1) LIMIT 1`, strings.TrimSpace(email))
}

// FindByID looks an account up by its identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findAccount(ctx, "by id", accountColumns+` WHERE u.id = $1 LIMIT 1`, id)
}

func (r *UserRepository) findAccount(ctx context.Context, by, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		return nil, fmt.Errorf("find account %s: %w", by, err)
	}
	return &user, nil
}

// ExistsByEmail reports whether any account already owns the address.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email)
	if err != nil {
		return false, fmt.Errorf("check account email: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin stamps a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return r.exec(ctx, "stamp last login", `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts)
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return r.exec(ctx, "update password", `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, updatedAt)
}

// SetActive enables or disables sign-in for the account.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, "toggle account", `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1`, id, active, time.Now().UTC())
}

// Delete drops the account; profile and sessions go with it through ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete account", `DELETE FROM users WHERE id = $1`, id)
}

// Create inserts an account with a lower-cased email. A clash on the email
// index wraps ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `INSERT INTO users (id, email, password_hash, active, created_at, updated_at)
VALUES (:id, :email, :password_hash, :active, :created_at, :updated_at)`, user)
	if IsUniqueViolation(err) {
		return fmt.Errorf("create account %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// tokenDigest is what gets stored for a refresh token; the raw value only
// ever lives with the client.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateRefreshToken opens a session row keyed by the digest of token.Token.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	return r.exec(ctx, "open session", `INSERT INTO refresh_tokens
	(id, user_id, token_hash, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		token.ID, token.UserID, tokenDigest(token.Token), token.ExpiresAt, token.CreatedAt,
		token.Revoked, token.RevokedAt, token.IPAddress, token.UserAgent)
}

// FindRefreshToken resolves a raw refresh token presented by a client.
// A miss wraps sql.ErrNoRows.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var session models.RefreshToken
	err := r.db.GetContext(ctx, &session, `SELECT id, user_id, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
FROM refresh_tokens WHERE token_hash = $1`, tokenDigest(token))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	session.Token = token
	return &session, nil
}

// RevokeRefreshToken closes one session.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return r.exec(ctx, "revoke session", `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`, id, revokedAt)
}

// RevokeUserRefreshTokens closes every open session of the account.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return r.exec(ctx, "revoke sessions", `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, userID, time.Now().UTC())
}

// CreateAuditLog appends to the audit trail.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO audit_logs
	(id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`, entry)
	if err != nil {
		return fmt.Errorf("append audit log %s/%s: %w", entry.Resource, entry.Action, err)
	}
	return nil
}

func (r *UserRepository) exec(ctx context.Context, what, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
