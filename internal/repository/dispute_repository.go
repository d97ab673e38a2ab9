package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/arbiter-backend/internal/models"
	"github.com/ignatzorin/arbiter-backend/internal/repository/common"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrStatusConflict возвращается, когда условный переход статуса не
	// затронул ни одной строки: текущий статус не из допустимого набора.
	ErrStatusConflict = errors.New("dispute status conflict")
)

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (owner_id, mode, person_a_name, person_b_name, persona, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, d.OwnerID, d.Mode, d.PersonAName, d.PersonBName, d.Persona, d.Status).
		Scan(&d.ID, &d.CreatedAt)
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// GetOwned возвращает спор только если он принадлежит вызывающему.
// Чужой спор неотличим от несуществующего.
func (r *DisputeRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DisputeRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE owner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	return disputes, err
}

// TransitionStatus выполняет условный переход статуса. Переход срабатывает
// только из одного из статусов from — это и есть защита от параллельного
// запуска разбирательства по одному спору.
func (r *DisputeRepository) TransitionStatus(ctx context.Context, id uuid.UUID, to string, from ...string) error {
	query, args, err := sqlx.In(`UPDATE disputes SET status = ? WHERE id = ? AND status IN (?)`, to, id, from)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStatusConflict
	}
	return nil
}

// SetStatus безусловно выставляет статус (используется для отката processing -> open).
func (r *DisputeRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE disputes SET status = $2 WHERE id = $1`, id, status)
	return err
}

// Complete переводит спор в completed и ставит отметку времени завершения.
func (r *DisputeRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = $2, completed_at = $3 WHERE id = $1
	`, id, models.DisputeStatusCompleted, completedAt)
	return err
}

// Delete удаляет спор; реплики и вердикт уходят каскадом по внешним ключам,
// транзакция гарантирует, что частично удалённого состояния не останется.
func (r *DisputeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM disputes WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrDisputeNotFound
		}
		return nil
	})
}
