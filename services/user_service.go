package services

import (
	"context"
	"errors"
	"fmt"

	"dailyDareAPI/internal/types/user"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserService struct {
	db    *pgxpool.Pool
	media *MediaService
}

func NewUserService(db *pgxpool.Pool, media *MediaService) *UserService {
	return &UserService{db: db, media: media}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	query := `
		INSERT INTO users (clerk_id, email, username, first_name, last_name, image_url, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (clerk_id)
		DO UPDATE SET
			email = $2,
			username = $3,
			first_name = $4,
			last_name = $5,
			image_url = $6,
			email_verified = $7,
			updated_at = NOW()
		RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
	`

	var u user.User
	err := s.db.QueryRow(ctx, query,
		req.ClerkID,
		req.Email,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
		req.EmailVerified,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
		SELECT id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
		FROM users
		WHERE clerk_id = $1
	`

	var u user.User
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($2, username),
		    first_name = COALESCE($3, first_name),
		    last_name = COALESCE($4, last_name),
		    image_url = COALESCE($5, image_url),
		    updated_at = NOW()
		WHERE clerk_id = $1
		RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, created_at, updated_at
	`

	var u user.User
	err := s.db.QueryRow(ctx, query, clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &u, nil
}

// DeleteUserByClerkID removes the user row and everything hanging off it.
// Stored media is deleted first, best effort: the dares rows go away via the
// FK cascade either way, and a leaked object is preferable to a failed
// account deletion.
func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	rows, err := s.db.Query(ctx, `
		SELECT d.image_url, d.video_url
		FROM dares d
		JOIN users u ON u.id = d.user_id
		WHERE u.clerk_id = $1
	`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to list user media: %w", err)
	}

	var urls []string
	for rows.Next() {
		var imageURL, videoURL *string
		if err := rows.Scan(&imageURL, &videoURL); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan user media: %w", err)
		}
		if imageURL != nil {
			urls = append(urls, *imageURL)
		}
		if videoURL != nil {
			urls = append(urls, *videoURL)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range urls {
		s.media.Delete(ctx, u)
	}

	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
