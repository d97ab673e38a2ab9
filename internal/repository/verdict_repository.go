package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/arbiter-backend/internal/models"
)

var ErrVerdictNotFound = errors.New("verdict not found")

type VerdictRepository struct {
	db *sqlx.DB
}

func NewVerdictRepository(db *sqlx.DB) *VerdictRepository {
	return &VerdictRepository{db: db}
}

// Upsert сохраняет вердикт спора; повторное разбирательство заменяет прежний
// вердикт благодаря уникальному ограничению на dispute_id.
func (r *VerdictRepository) Upsert(ctx context.Context, v *models.Verdict) error {
	query := `
		INSERT INTO verdicts (dispute_id, winner, winner_name, rationale, full_response,
			research_performed, sources, audio_key, audio_duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dispute_id) DO UPDATE SET
			winner = EXCLUDED.winner,
			winner_name = EXCLUDED.winner_name,
			rationale = EXCLUDED.rationale,
			full_response = EXCLUDED.full_response,
			research_performed = EXCLUDED.research_performed,
			sources = EXCLUDED.sources,
			audio_key = EXCLUDED.audio_key,
			audio_duration = EXCLUDED.audio_duration,
			created_at = NOW()
		RETURNING id, created_at
	`
	sources := v.Sources
	if sources == nil {
		sources = pq.StringArray{}
	}
	return r.db.QueryRowContext(ctx, query, v.DisputeID, v.Winner, v.WinnerName, v.Rationale,
		v.FullResponse, v.ResearchPerformed, sources, v.AudioKey, v.AudioDuration).
		Scan(&v.ID, &v.CreatedAt)
}

func (r *VerdictRepository) GetByDispute(ctx context.Context, disputeID uuid.UUID) (*models.Verdict, error) {
	var v models.Verdict
	err := r.db.GetContext(ctx, &v, `SELECT * FROM verdicts WHERE dispute_id = $1`, disputeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerdictNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ExistsByDispute сообщает, есть ли у спора вердикт.
func (r *VerdictRepository) ExistsByDispute(ctx context.Context, disputeID uuid.UUID) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM verdicts WHERE dispute_id = $1`, disputeID)
	return count > 0, err
}
