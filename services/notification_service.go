package services

import (
	"context"
	"fmt"
	"log"

	"dailyDareAPI/internal/types/notification"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PushProvider is implemented by the FCM client; nil means pushes are off.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *pgxpool.Pool
	push PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID, token, platform string) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform)
		SELECT id, $2, $3 FROM users WHERE clerk_id = $1
		ON CONFLICT (token)
		DO UPDATE SET platform = $3
	`

	result, err := s.db.Exec(ctx, query, clerkID, token, platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found with clerk_id: %s", clerkID)
	}

	return nil
}

func (s *NotificationService) deviceTokens(ctx context.Context, clerkID string) ([]notification.DeviceToken, error) {
	query := `
		SELECT dt.id, dt.user_id, dt.token, dt.platform, dt.created_at
		FROM device_tokens dt
		JOIN users u ON u.id = dt.user_id
		WHERE u.clerk_id = $1
	`

	rows, err := s.db.Query(ctx, query, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}

var streakMilestones = map[int]string{
	7:   "One week of dares! Keep the creative streak alive.",
	30:  "30 days straight. You're unstoppable!",
	100: "100 days of daring. Legendary.",
}

// NotifyStreakMilestone sends a push when the streak hits a milestone day.
// Push failures never surface to the completion that triggered them.
func (s *NotificationService) NotifyStreakMilestone(ctx context.Context, clerkID string, days int) {
	body, ok := streakMilestones[days]
	if !ok || s.push == nil {
		return
	}

	tokens, err := s.deviceTokens(ctx, clerkID)
	if err != nil {
		log.Printf("Streak milestone push skipped for %s: %v", clerkID, err)
		return
	}

	title := fmt.Sprintf("%d-day streak!", days)
	data := map[string]any{"type": "streak_milestone", "days": days}
	if err := s.push.SendPush(ctx, tokens, title, body, data); err != nil {
		log.Printf("Streak milestone push failed for %s: %v", clerkID, err)
	}
}
