package services

import (
	"context"
	"errors"
	"fmt"

	"dailyDareAPI/internal/types/dare"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DareRepository is the row store behind the dare service. Kept as an
// interface so the sync logic can be exercised against an in-memory fake.
type DareRepository interface {
	UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*dare.Record, error)
	// GetByKey returns (nil, nil) when no row exists for the prompt.
	GetByKey(ctx context.Context, userID uuid.UUID, dareText string) (*dare.Record, error)
	Insert(ctx context.Context, userID uuid.UUID, rec *dare.Record) error
	Update(ctx context.Context, rec *dare.Record) error
	DeleteByKey(ctx context.Context, userID uuid.UUID, dareText string) error
}

type PostgresDareRepository struct {
	db *pgxpool.Pool
}

func NewPostgresDareRepository(db *pgxpool.Pool) *PostgresDareRepository {
	return &PostgresDareRepository{db: db}
}

func (r *PostgresDareRepository) UserIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("user not found with clerk_id: %s", clerkID)
		}
		return uuid.Nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return userID, nil
}

func (r *PostgresDareRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*dare.Record, error) {
	query := `
		SELECT id, dare_text, completed, image_url, video_url, reflection_text, draft_text, completed_at, created_at, updated_at
		FROM dares
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dares: %w", err)
	}
	defer rows.Close()

	var records []*dare.Record
	for rows.Next() {
		var rec dare.Record
		err := rows.Scan(
			&rec.ID,
			&rec.DareText,
			&rec.Completed,
			&rec.ImageURL,
			&rec.VideoURL,
			&rec.ReflectionText,
			&rec.DraftText,
			&rec.CompletedAt,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dare row: %w", err)
		}
		records = append(records, &rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *PostgresDareRepository) GetByKey(ctx context.Context, userID uuid.UUID, dareText string) (*dare.Record, error) {
	query := `
		SELECT id, dare_text, completed, image_url, video_url, reflection_text, draft_text, completed_at, created_at, updated_at
		FROM dares
		WHERE user_id = $1 AND dare_text = $2
	`

	var rec dare.Record
	err := r.db.QueryRow(ctx, query, userID, dareText).Scan(
		&rec.ID,
		&rec.DareText,
		&rec.Completed,
		&rec.ImageURL,
		&rec.VideoURL,
		&rec.ReflectionText,
		&rec.DraftText,
		&rec.CompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dare: %w", err)
	}

	return &rec, nil
}

func (r *PostgresDareRepository) Insert(ctx context.Context, userID uuid.UUID, rec *dare.Record) error {
	query := `
		INSERT INTO dares (user_id, dare_text, completed, image_url, video_url, reflection_text, draft_text, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		userID,
		rec.DareText,
		rec.Completed,
		rec.ImageURL,
		rec.VideoURL,
		rec.ReflectionText,
		rec.DraftText,
		rec.CompletedAt,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dare: %w", err)
	}

	return nil
}

func (r *PostgresDareRepository) Update(ctx context.Context, rec *dare.Record) error {
	query := `
		UPDATE dares
		SET completed = $2,
		    image_url = $3,
		    video_url = $4,
		    reflection_text = $5,
		    draft_text = $6,
		    completed_at = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rec.ID,
		rec.Completed,
		rec.ImageURL,
		rec.VideoURL,
		rec.ReflectionText,
		rec.DraftText,
		rec.CompletedAt,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("dare not found for update")
		}
		return fmt.Errorf("failed to update dare: %w", err)
	}

	return nil
}

func (r *PostgresDareRepository) DeleteByKey(ctx context.Context, userID uuid.UUID, dareText string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM dares WHERE user_id = $1 AND dare_text = $2`, userID, dareText)
	if err != nil {
		return fmt.Errorf("failed to delete dare: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no dare found for the specified text")
	}

	return nil
}
