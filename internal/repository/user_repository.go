package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/repository/common"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, tier)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, u.Email, u.Username, u.PasswordHash, u.Tier).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// UpdateTier фиксирует смену тарифа (в т.ч. понижение при истёкшей подписке).
func (r *UserRepository) UpdateTier(ctx context.Context, id uuid.UUID, tier string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET tier = $2, updated_at = NOW() WHERE id = $1
	`, id, tier)
	return err
}

// IncrementDisputeCount увеличивает дневной счётчик одним атомарным UPDATE:
// если сохранённая дата не сегодняшняя, счётчик начинается заново с единицы.
// Возвращает новое значение счётчика.
func (r *UserRepository) IncrementDisputeCount(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	query := `
		UPDATE users SET
			disputes_today = CASE
				WHEN last_dispute_date = (NOW() AT TIME ZONE 'UTC')::date THEN disputes_today + 1
				ELSE 1
			END,
			last_dispute_date = (NOW() AT TIME ZONE 'UTC')::date,
			updated_at = NOW()
		WHERE id = $1
		RETURNING disputes_today
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&count)
	return count, err
}
