package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/models"
)

func subscriberRow(email string, plan models.PlanTier) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "plan", "role", "email_verified",
		"telegram_chat_id", "webhook_url", "quiet_start", "quiet_end",
		"unread_count", "max_subscriptions_override", "per_hour_override",
		"is_active", "created_at", "updated_at",
	}).AddRow(
		"7f0b7e52-63c4-4d47-9d5c-2f8f64f3e001", email, "$2a$10$hash", string(plan),
		"subscriber", false, "", "", "", "", 0, nil, nil, true, now, now,
	)
}

func TestSignUpForcesFreePlan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	// The stored plan is free even when the caller asks for a paid tier;
	// upgrades only happen through the admin-gated plan endpoint.
	mock.ExpectQuery(`INSERT INTO alerts\.subscribers`).
		WithArgs("trader@example.com", sqlmock.AnyArg(), "free", "subscriber").
		WillReturnRows(subscriberRow("trader@example.com", models.PlanFree))

	h := NewAuthHandler(db, &config.Config{JWTSecret: "secret"}, zerolog.Nop())

	body := `{"email":"trader@example.com","password":"hunter2","plan":"enterprise"}`
	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("SignUp status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"plan":"free"`) {
		t.Errorf("signup response plan is not free: %s", rec.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSignUpRequiresCredentials(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	h := NewAuthHandler(db, &config.Config{JWTSecret: "secret"}, zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{name: "missing email", body: `{"password":"hunter2"}`},
		{name: "missing password", body: `{"email":"trader@example.com"}`},
		{name: "blank email", body: `{"email":"   ","password":"hunter2"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.SignUp(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("SignUp status = %d, want 400", rec.Code)
			}
		})
	}
}
