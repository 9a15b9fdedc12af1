package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

// UserRepository supplies the user data the calculation core needs.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a single user or apperrors.ErrUserNotFound.
func (r *UserRepository) GetByID(id string) (*model.User, error) {
	query := `SELECT id, email, residence_country, created_at FROM users WHERE id = ?`

	var user model.User
	var residenceCountry sql.NullString
	var createdAtStr string

	err := r.db.QueryRow(query, id).Scan(&user.ID, &user.Email, &residenceCountry, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query users table: %w", err)
	}

	user.ResidenceCountry = residenceCountry.String

	if user.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to scan users table results: %w", err)
	}

	return &user, nil
}
