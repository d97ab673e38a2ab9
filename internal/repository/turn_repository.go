package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbiter-backend/internal/models"
)

var ErrTurnNotFound = errors.New("turn not found")

type TurnRepository struct {
	db *sqlx.DB
}

func NewTurnRepository(db *sqlx.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// Append добавляет реплику с номером max(ord)+1 одним INSERT ... SELECT.
// Номер вычисляется и записывается в одном стейтменте, поэтому гонка
// "прочитал максимум - записал устаревший" невозможна; при одновременной
// вставке конфликт разрешит уникальный индекс (dispute_id, ord).
func (r *TurnRepository) Append(ctx context.Context, t *models.Turn) error {
	query := `
		INSERT INTO turns (dispute_id, speaker, text, audio_key, duration_seconds, ord)
		SELECT $1, $2, $3, $4, $5, COALESCE(MAX(ord), 0) + 1
		FROM turns WHERE dispute_id = $1
		RETURNING id, ord, created_at
	`
	return r.db.QueryRowContext(ctx, query, t.DisputeID, t.Speaker, t.Text, t.AudioKey, t.DurationSeconds).
		Scan(&t.ID, &t.Ord, &t.CreatedAt)
}

// ListByDispute возвращает реплики спора в порядке возрастания ord.
func (r *TurnRepository) ListByDispute(ctx context.Context, disputeID uuid.UUID) ([]models.Turn, error) {
	var turns []models.Turn
	err := r.db.SelectContext(ctx, &turns, `
		SELECT * FROM turns WHERE dispute_id = $1 ORDER BY ord ASC
	`, disputeID)
	return turns, err
}

// CountByDispute возвращает число реплик в споре.
func (r *TurnRepository) CountByDispute(ctx context.Context, disputeID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM turns WHERE dispute_id = $1`, disputeID)
	return count, err
}
