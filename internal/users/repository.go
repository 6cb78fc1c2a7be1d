package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/screenloom/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a users repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, api_key, access_token, created_at`

// Create inserts a new user and fills in its assigned id and timestamp.
func (r *Repository) Create(ctx context.Context, name, apiKey, accessToken string) (*models.User, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, api_key, access_token, created_at) VALUES (?, ?, ?, ?)`,
		name, apiKey, accessToken, now)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user id: %w", err)
	}
	return &models.User{
		ID:          id,
		Name:        name,
		APIKey:      apiKey,
		AccessToken: accessToken,
		CreatedAt:   time.Unix(0, int64(now*1e9)).UTC(),
	}, nil
}

// GetByAPIKey returns the user holding a credential, or nil.
func (r *Repository) GetByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = ?`, apiKey)
	return scanUser(row)
}

// GetByAccessToken returns the user for a local session token, or nil.
func (r *Repository) GetByAccessToken(ctx context.Context, token string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE access_token = ?`, token)
	return scanUser(row)
}

// Latest returns the most recently registered user, or nil when none exists.
func (r *Repository) Latest(ctx context.Context) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT 1`)
	return scanUser(row)
}

// UpdateName rotates the display name, the only mutable user attribute.
func (r *Repository) UpdateName(ctx context.Context, id int64, name string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var createdAt float64
	err := row.Scan(&u.ID, &u.Name, &u.APIKey, &u.AccessToken, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(0, int64(createdAt*1e9)).UTC()
	return &u, nil
}
