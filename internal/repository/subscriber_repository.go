package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type SubscriberRepository interface {
	Create(ctx context.Context, email, password string, plan models.PlanTier, role models.Role) (models.Subscriber, error)
	Authenticate(ctx context.Context, email, password string) (models.Subscriber, error)
	GetByID(ctx context.Context, id string) (models.Subscriber, error)
	UpdatePlan(ctx context.Context, id string, plan models.PlanTier) (models.Subscriber, error)
	UpdateContact(ctx context.Context, id string, contact models.ContactSettings) (models.Subscriber, error)
	SetQuotaOverride(ctx context.Context, id string, maxSubscriptions, perHour *int) (models.Subscriber, error)
}

type subscriberRepository struct {
	db *sql.DB
}

func NewSubscriberRepository(db *sql.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

const subscriberColumns = `id, email, password_hash, plan, role, email_verified, telegram_chat_id,
	webhook_url, quiet_start, quiet_end, unread_count, max_subscriptions_override,
	per_hour_override, is_active, created_at, updated_at`

func (r *subscriberRepository) Create(ctx context.Context, email, password string, plan models.PlanTier, role models.Role) (models.Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Subscriber{}, errors.New("email is required")
	}
	if password == "" {
		return models.Subscriber{}, errors.New("password is required")
	}
	if plan == "" {
		plan = models.PlanFree
	}
	if role == "" {
		role = models.RoleSubscriber
	}
	if !models.IsValidRole(role) {
		return models.Subscriber{}, errors.New("invalid role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Subscriber{}, err
	}

	query := `
		INSERT INTO alerts.subscribers (email, password_hash, plan, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + subscriberColumns

	row := r.db.QueryRowContext(ctx, query, email, string(hash), plan, role)
	return scanSubscriber(row)
}

func (r *subscriberRepository) Authenticate(ctx context.Context, email, password string) (models.Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	query := `
		SELECT ` + subscriberColumns + `
		FROM alerts.subscribers
		WHERE email = $1`

	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Subscriber{}, errors.New("invalid credentials")
		}
		return models.Subscriber{}, err
	}

	if !sub.IsActive {
		return models.Subscriber{}, errors.New("subscriber is inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(sub.PasswordHash), []byte(password)); err != nil {
		return models.Subscriber{}, errors.New("invalid credentials")
	}

	return sub, nil
}

func (r *subscriberRepository) GetByID(ctx context.Context, id string) (models.Subscriber, error) {
	query := `
		SELECT ` + subscriberColumns + `
		FROM alerts.subscribers
		WHERE id = $1`

	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, models.ErrNotFound
	}
	return sub, err
}

func (r *subscriberRepository) UpdatePlan(ctx context.Context, id string, plan models.PlanTier) (models.Subscriber, error) {
	query := `
		UPDATE alerts.subscribers
		SET plan = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriberColumns

	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id, plan))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, models.ErrNotFound
	}
	return sub, err
}

func (r *subscriberRepository) UpdateContact(ctx context.Context, id string, contact models.ContactSettings) (models.Subscriber, error) {
	query := `
		UPDATE alerts.subscribers
		SET email_verified = $2, telegram_chat_id = $3, webhook_url = $4,
			quiet_start = $5, quiet_end = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriberColumns

	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id, contact.EmailVerified,
		strings.TrimSpace(contact.TelegramChatID), strings.TrimSpace(contact.WebhookURL),
		strings.TrimSpace(contact.QuietStart), strings.TrimSpace(contact.QuietEnd)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, models.ErrNotFound
	}
	return sub, err
}

func (r *subscriberRepository) SetQuotaOverride(ctx context.Context, id string, maxSubscriptions, perHour *int) (models.Subscriber, error) {
	query := `
		UPDATE alerts.subscribers
		SET max_subscriptions_override = $2, per_hour_override = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriberColumns

	sub, err := scanSubscriber(r.db.QueryRowContext(ctx, query, id, maxSubscriptions, perHour))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscriber{}, models.ErrNotFound
	}
	return sub, err
}

func scanSubscriber(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Subscriber, error) {
	var (
		sub         models.Subscriber
		maxSubsOvr  sql.NullInt64
		perHourOvr  sql.NullInt64
		telegramCID sql.NullString
		webhookURL  sql.NullString
	)

	if err := scanner.Scan(
		&sub.ID,
		&sub.Email,
		&sub.PasswordHash,
		&sub.Plan,
		&sub.Role,
		&sub.EmailVerified,
		&telegramCID,
		&webhookURL,
		&sub.QuietStart,
		&sub.QuietEnd,
		&sub.UnreadCount,
		&maxSubsOvr,
		&perHourOvr,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return models.Subscriber{}, err
	}

	if telegramCID.Valid {
		sub.TelegramChatID = telegramCID.String
	}
	if webhookURL.Valid {
		sub.WebhookURL = webhookURL.String
	}
	if maxSubsOvr.Valid {
		v := int(maxSubsOvr.Int64)
		sub.MaxSubscriptionsOverride = &v
	}
	if perHourOvr.Valid {
		v := int(perHourOvr.Int64)
		sub.PerHourOverride = &v
	}

	return sub, nil
}
