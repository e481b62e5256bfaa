package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type NotificationRepository interface {
	// Insert is the dedup point: at most one notification ever exists for a
	// (subscription, event) pair. Losing racers get models.ErrAlreadyExists.
	Insert(ctx context.Context, n models.Notification) (models.Notification, error)
	GetByID(ctx context.Context, id int64) (models.Notification, error)
	PollSince(ctx context.Context, subscriberID string, sinceID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, subscriberID string, id int64) error
	MarkAllRead(ctx context.Context, subscriberID string) error
	Clear(ctx context.Context, subscriberID string) error
	UnreadCount(ctx context.Context, subscriberID string) (int, error)
	SetDeliveryStatus(ctx context.Context, id int64, channel models.Channel, status models.DeliveryStatus) error
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, subscriber_id, subscription_id, event_id, title, body, priority,
	payload, read, delivery, created_at, cleared_at`

func (r *notificationRepository) Insert(ctx context.Context, n models.Notification) (models.Notification, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return models.Notification{}, fmt.Errorf("marshal payload: %w", err)
	}
	delivery := n.Delivery
	if delivery == nil {
		delivery = map[models.Channel]models.DeliveryStatus{}
	}
	deliveryRaw, err := json.Marshal(delivery)
	if err != nil {
		return models.Notification{}, fmt.Errorf("marshal delivery map: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Notification{}, err
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO alerts.notifications (subscriber_id, subscription_id, event_id, title, body, priority, payload, delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT notifications_dedup DO NOTHING
		RETURNING ` + notificationColumns

	row := tx.QueryRowContext(ctx, query,
		n.SubscriberID, n.SubscriptionID, n.EventID, n.Title, n.Body, n.Priority, payload, deliveryRaw)

	created, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent caller won the insert; this is a no-op.
			return models.Notification{}, models.ErrAlreadyExists
		}
		return models.Notification{}, err
	}

	// Unread counter moves in the same transaction as the insert, so
	// unread_count never requires a scan and never drifts.
	if _, err := tx.ExecContext(ctx,
		`UPDATE alerts.subscribers SET unread_count = unread_count + 1, updated_at = now() WHERE id = $1`,
		n.SubscriberID); err != nil {
		return models.Notification{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Notification{}, err
	}
	return created, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM alerts.notifications
		WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, models.ErrNotFound
	}
	return n, err
}

func (r *notificationRepository) PollSince(ctx context.Context, subscriberID string, sinceID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	} else if limit > 200 {
		limit = 200
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM alerts.notifications
		WHERE subscriber_id = $1 AND id > $2 AND cleared_at IS NULL
		ORDER BY id ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, subscriberID, sinceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, subscriberID string, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE alerts.notifications
		SET read = TRUE
		WHERE id = $1 AND subscriber_id = $2 AND NOT read AND cleared_at IS NULL`,
		id, subscriberID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish "unknown notification" from "already read".
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT TRUE FROM alerts.notifications
			WHERE id = $1 AND subscriber_id = $2 AND cleared_at IS NULL`,
			id, subscriberID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE alerts.subscribers
		SET unread_count = GREATEST(unread_count - 1, 0), updated_at = now()
		WHERE id = $1`,
		subscriberID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, subscriberID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE alerts.notifications
		SET read = TRUE
		WHERE subscriber_id = $1 AND NOT read AND cleared_at IS NULL`,
		subscriberID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE alerts.subscribers SET unread_count = 0, updated_at = now() WHERE id = $1`,
		subscriberID); err != nil {
		return err
	}

	return tx.Commit()
}

// Clear soft-deletes every notification for the subscriber. Cleared rows are
// excluded from all subsequent queries but stay in permanent storage.
func (r *notificationRepository) Clear(ctx context.Context, subscriberID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE alerts.notifications
		SET cleared_at = now()
		WHERE subscriber_id = $1 AND cleared_at IS NULL`,
		subscriberID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE alerts.subscribers SET unread_count = 0, updated_at = now() WHERE id = $1`,
		subscriberID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, subscriberID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT unread_count FROM alerts.subscribers WHERE id = $1`,
		subscriberID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	return count, err
}

func (r *notificationRepository) SetDeliveryStatus(ctx context.Context, id int64, channel models.Channel, status models.DeliveryStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal delivery status: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts.notifications
		SET delivery = delivery || jsonb_build_object($2::text, $3::jsonb)
		WHERE id = $1`,
		id, string(channel), raw)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Notification, error) {
	var (
		n           models.Notification
		payloadRaw  []byte
		deliveryRaw []byte
		clearedAt   sql.NullTime
	)

	if err := scanner.Scan(
		&n.ID,
		&n.SubscriberID,
		&n.SubscriptionID,
		&n.EventID,
		&n.Title,
		&n.Body,
		&n.Priority,
		&payloadRaw,
		&n.Read,
		&deliveryRaw,
		&n.CreatedAt,
		&clearedAt,
	); err != nil {
		return models.Notification{}, err
	}

	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &n.Payload); err != nil {
			return models.Notification{}, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	n.Delivery = map[models.Channel]models.DeliveryStatus{}
	if len(deliveryRaw) > 0 {
		if err := json.Unmarshal(deliveryRaw, &n.Delivery); err != nil {
			return models.Notification{}, fmt.Errorf("unmarshal delivery map: %w", err)
		}
	}
	if clearedAt.Valid {
		t := clearedAt.Time
		n.ClearedAt = &t
	}

	return n, nil
}
