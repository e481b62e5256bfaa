package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/models"
)

type stubSubscriberRepo struct {
	subscribers map[string]models.Subscriber
}

func (r *stubSubscriberRepo) Create(_ context.Context, email, password string, plan models.PlanTier, role models.Role) (models.Subscriber, error) {
	return models.Subscriber{}, models.ErrNotFound
}

func (r *stubSubscriberRepo) Authenticate(_ context.Context, email, password string) (models.Subscriber, error) {
	return models.Subscriber{}, models.ErrNotFound
}

func (r *stubSubscriberRepo) GetByID(_ context.Context, id string) (models.Subscriber, error) {
	sub, ok := r.subscribers[id]
	if !ok {
		return models.Subscriber{}, models.ErrNotFound
	}
	return sub, nil
}

func (r *stubSubscriberRepo) UpdatePlan(_ context.Context, id string, plan models.PlanTier) (models.Subscriber, error) {
	return models.Subscriber{}, models.ErrNotFound
}

func (r *stubSubscriberRepo) UpdateContact(_ context.Context, id string, contact models.ContactSettings) (models.Subscriber, error) {
	sub, ok := r.subscribers[id]
	if !ok {
		return models.Subscriber{}, models.ErrNotFound
	}
	sub.EmailVerified = contact.EmailVerified
	sub.TelegramChatID = contact.TelegramChatID
	sub.WebhookURL = contact.WebhookURL
	sub.QuietStart = contact.QuietStart
	sub.QuietEnd = contact.QuietEnd
	r.subscribers[id] = sub
	return sub, nil
}

func (r *stubSubscriberRepo) SetQuotaOverride(_ context.Context, id string, maxSubscriptions, perHour *int) (models.Subscriber, error) {
	return models.Subscriber{}, models.ErrNotFound
}

func TestUpdateContactValidatesQuietHours(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid window crossing midnight",
			body:       `{"quiet_start":"22:00","quiet_end":"06:00"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "clearing the window",
			body:       `{"quiet_start":"","quiet_end":""}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "start without end",
			body:       `{"quiet_start":"22:00"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "end without start",
			body:       `{"quiet_end":"06:00"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not a clock time",
			body:       `{"quiet_start":"25:99","quiet_end":"06:00"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubSubscriberRepo{subscribers: map[string]models.Subscriber{
				"owner-1": {ID: "owner-1", Plan: models.PlanPro},
			}}
			h := NewSubscriberHandler(repo, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPut, "/api/subscribers/me/contact", strings.NewReader(tc.body))
			req = req.WithContext(authz.WithIdentity(req.Context(), "owner-1", models.RoleSubscriber))
			rec := httptest.NewRecorder()
			h.UpdateContact(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("UpdateContact status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestUpdateContactPersistsQuietHours(t *testing.T) {
	repo := &stubSubscriberRepo{subscribers: map[string]models.Subscriber{
		"owner-1": {ID: "owner-1", Plan: models.PlanPro},
	}}
	h := NewSubscriberHandler(repo, zerolog.Nop())

	body := `{"email_verified":true,"telegram_chat_id":"12345","quiet_start":"22:00","quiet_end":"06:00"}`
	req := httptest.NewRequest(http.MethodPut, "/api/subscribers/me/contact", strings.NewReader(body))
	req = req.WithContext(authz.WithIdentity(req.Context(), "owner-1", models.RoleSubscriber))
	rec := httptest.NewRecorder()
	h.UpdateContact(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("UpdateContact status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	stored := repo.subscribers["owner-1"]
	if stored.QuietStart != "22:00" || stored.QuietEnd != "06:00" {
		t.Errorf("stored quiet window = %q-%q, want 22:00-06:00", stored.QuietStart, stored.QuietEnd)
	}
	if !stored.EmailVerified || stored.TelegramChatID != "12345" {
		t.Errorf("contact fields not persisted: %+v", stored)
	}
}
