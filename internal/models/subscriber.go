package models

import "time"

type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
)

func IsValidRole(r Role) bool {
	return r == RoleSubscriber || r == RoleAdmin
}

// Subscriber owns subscriptions and receives notifications. Subscribers are
// never hard-deleted; is_active gates authentication only. The plan tier is
// mutated by the external billing collaborator.
type Subscriber struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Plan           PlanTier  `json:"plan" db:"plan"`
	Role           Role      `json:"role" db:"role"`
	EmailVerified  bool      `json:"email_verified" db:"email_verified"`
	TelegramChatID string    `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	WebhookURL     string    `json:"webhook_url,omitempty" db:"webhook_url"`
	UnreadCount    int       `json:"unread_count" db:"unread_count"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	// Quiet hours suppress durable push delivery; "HH:MM" UTC, both set or
	// both empty. The window may cross midnight ("22:00" to "06:00").
	QuietStart string `json:"quiet_start,omitempty" db:"quiet_start"`
	QuietEnd   string `json:"quiet_end,omitempty" db:"quiet_end"`

	// Admin overrides (gift/extend); nil means the plan value applies.
	MaxSubscriptionsOverride *int `json:"max_subscriptions_override,omitempty" db:"max_subscriptions_override"`
	PerHourOverride          *int `json:"per_hour_override,omitempty" db:"per_hour_override"`
}

// ContactSettings is the subscriber-editable slice of the profile: delivery
// endpoints for the addressed channels plus the quiet-hours window.
type ContactSettings struct {
	EmailVerified  bool
	TelegramChatID string
	WebhookURL     string
	QuietStart     string
	QuietEnd       string
}

// InQuietHours reports whether now falls inside the subscriber's quiet-hours
// window. Subscribers without a window are never quiet.
func (s Subscriber) InQuietHours(now time.Time) bool {
	if s.QuietStart == "" || s.QuietEnd == "" {
		return false
	}
	current := now.UTC().Format("15:04")
	if s.QuietStart <= s.QuietEnd {
		return current >= s.QuietStart && current <= s.QuietEnd
	}
	// Window crosses midnight.
	return current >= s.QuietStart || current <= s.QuietEnd
}

// IsClockTime reports whether v is a valid "HH:MM" wall-clock value.
func IsClockTime(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

// EffectiveQuota resolves the subscriber's plan quota with any admin
// overrides applied. The allowed channel set always comes from the plan.
func (s Subscriber) EffectiveQuota() Quota {
	q := QuotaFor(s.Plan)
	if s.MaxSubscriptionsOverride != nil {
		q.MaxEnabledSubscriptions = *s.MaxSubscriptionsOverride
	}
	if s.PerHourOverride != nil {
		q.NotificationsPerHour = *s.PerHourOverride
	}
	return q
}
