package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/models"
)

type fakeSubscriptionRepo struct {
	subs   map[string]models.Subscription
	nextID int
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: map[string]models.Subscription{}}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, sub models.Subscription) (models.Subscription, error) {
	r.nextID++
	sub.ID = fmt.Sprintf("sub-%d", r.nextID)
	r.subs[sub.ID] = sub
	return sub, nil
}

func (r *fakeSubscriptionRepo) Update(_ context.Context, sub models.Subscription) (models.Subscription, error) {
	if _, ok := r.subs[sub.ID]; !ok {
		return models.Subscription{}, models.ErrNotFound
	}
	r.subs[sub.ID] = sub
	return sub, nil
}

func (r *fakeSubscriptionRepo) Disable(_ context.Context, id string) (models.Subscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return models.Subscription{}, models.ErrNotFound
	}
	sub.Enabled = false
	r.subs[id] = sub
	return sub, nil
}

func (r *fakeSubscriptionRepo) GetByID(_ context.Context, id string) (models.Subscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return models.Subscription{}, models.ErrNotFound
	}
	return sub, nil
}

func (r *fakeSubscriptionRepo) ListBySubscriber(_ context.Context, subscriberID string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range r.subs {
		if sub.SubscriberID == subscriberID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) ListEnabled(_ context.Context) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range r.subs {
		if sub.Enabled {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) CountEnabled(_ context.Context, subscriberID string) (int, error) {
	count := 0
	for _, sub := range r.subs {
		if sub.SubscriberID == subscriberID && sub.Enabled {
			count++
		}
	}
	return count, nil
}

type fakeSubscriberRepo struct {
	subscribers map[string]models.Subscriber
}

func (r *fakeSubscriberRepo) Create(_ context.Context, email, password string, plan models.PlanTier, role models.Role) (models.Subscriber, error) {
	return models.Subscriber{}, errors.New("not implemented")
}

func (r *fakeSubscriberRepo) Authenticate(_ context.Context, email, password string) (models.Subscriber, error) {
	return models.Subscriber{}, errors.New("not implemented")
}

func (r *fakeSubscriberRepo) GetByID(_ context.Context, id string) (models.Subscriber, error) {
	sub, ok := r.subscribers[id]
	if !ok {
		return models.Subscriber{}, models.ErrNotFound
	}
	return sub, nil
}

func (r *fakeSubscriberRepo) UpdatePlan(_ context.Context, id string, plan models.PlanTier) (models.Subscriber, error) {
	sub, ok := r.subscribers[id]
	if !ok {
		return models.Subscriber{}, models.ErrNotFound
	}
	sub.Plan = plan
	r.subscribers[id] = sub
	return sub, nil
}

func (r *fakeSubscriberRepo) UpdateContact(_ context.Context, id string, contact models.ContactSettings) (models.Subscriber, error) {
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

func (r *fakeSubscriberRepo) SetQuotaOverride(_ context.Context, id string, maxSubscriptions, perHour *int) (models.Subscriber, error) {
	sub, ok := r.subscribers[id]
	if !ok {
		return models.Subscriber{}, models.ErrNotFound
	}
	sub.MaxSubscriptionsOverride = maxSubscriptions
	sub.PerHourOverride = perHour
	r.subscribers[id] = sub
	return sub, nil
}

func newTestService(subscribers ...models.Subscriber) (*Service, *fakeSubscriptionRepo, *fakeSubscriberRepo) {
	subRepo := newFakeSubscriptionRepo()
	ownerRepo := &fakeSubscriberRepo{subscribers: map[string]models.Subscriber{}}
	for _, s := range subscribers {
		ownerRepo.subscribers[s.ID] = s
	}
	return NewService(subRepo, ownerRepo, zerolog.Nop()), subRepo, ownerRepo
}

func validConfig() models.SubscriptionConfig {
	return models.SubscriptionConfig{
		StrategyID: "strat-gold",
		Symbols:    []string{"xauusd"},
		EventTypes: []string{"near_sl", "closed_sl"},
		Channels:   []string{"in_app", "sound"},
	}
}

func freeSubscriber(id string) models.Subscriber {
	return models.Subscriber{ID: id, Plan: models.PlanFree, Role: models.RoleSubscriber, IsActive: true}
}

func TestCreateNormalizesConfig(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	created, err := svc.Create(context.Background(), ident, "", validConfig())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.SubscriberID != "owner-1" {
		t.Errorf("SubscriberID = %q, want owner-1", created.SubscriberID)
	}
	if !created.Enabled {
		t.Error("new subscription should be enabled")
	}
	if len(created.Symbols) != 1 || created.Symbols[0] != "XAUUSD" {
		t.Errorf("symbols not uppercased: %v", created.Symbols)
	}
}

func TestCreateEnforcesSubscriptionQuota(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	// Free plan allows two enabled subscriptions.
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(context.Background(), ident, "", validConfig()); err != nil {
			t.Fatalf("Create() %d error: %v", i, err)
		}
	}

	_, err := svc.Create(context.Background(), ident, "", validConfig())
	if !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("third Create() error = %v, want ErrQuotaExceeded", err)
	}
}

func TestDisableFreesQuotaSlot(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	first, err := svc.Create(context.Background(), ident, "", validConfig())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := svc.Create(context.Background(), ident, "", validConfig()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := svc.Disable(context.Background(), ident, first.ID); err != nil {
		t.Fatalf("Disable() error: %v", err)
	}
	if _, err := svc.Create(context.Background(), ident, "", validConfig()); err != nil {
		t.Fatalf("Create() after disable error = %v, want nil", err)
	}
}

func TestCreateRejectsChannelOutsidePlan(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	cfg := validConfig()
	cfg.Channels = []string{"in_app", "telegram"}

	_, err := svc.Create(context.Background(), ident, "", cfg)
	if !errors.Is(err, models.ErrChannelNotAllowed) {
		t.Fatalf("Create() error = %v, want ErrChannelNotAllowed", err)
	}
}

func TestBroadcastChannelRequiresAdmin(t *testing.T) {
	admin := models.Subscriber{ID: "admin-1", Plan: models.PlanEnterprise, Role: models.RoleAdmin, IsActive: true}
	svc, _, _ := newTestService(freeSubscriber("owner-1"), admin)

	cfg := validConfig()
	cfg.Channels = []string{"broadcast"}

	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}
	if _, err := svc.Create(context.Background(), ident, "", cfg); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("subscriber broadcast error = %v, want ErrForbidden", err)
	}

	adminIdent := authz.Identity{SubscriberID: "admin-1", Role: models.RoleAdmin}
	if _, err := svc.Create(context.Background(), adminIdent, "", cfg); err != nil {
		t.Fatalf("admin broadcast error = %v, want nil", err)
	}
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	tests := []struct {
		name   string
		mutate func(*models.SubscriptionConfig)
	}{
		{"missing strategy", func(c *models.SubscriptionConfig) { c.StrategyID = "" }},
		{"empty symbols", func(c *models.SubscriptionConfig) { c.Symbols = nil }},
		{"empty event types", func(c *models.SubscriptionConfig) { c.EventTypes = []string{} }},
		{"unknown event type", func(c *models.SubscriptionConfig) { c.EventTypes = []string{"liquidated"} }},
		{"empty channels", func(c *models.SubscriptionConfig) { c.Channels = nil }},
		{"unknown channel", func(c *models.SubscriptionConfig) { c.Channels = []string{"pager"} }},
		{"confidence above range", func(c *models.SubscriptionConfig) { c.MinConfidence = 101 }},
		{"confidence below range", func(c *models.SubscriptionConfig) { c.MinConfidence = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if _, err := svc.Create(context.Background(), ident, "", cfg); !errors.Is(err, models.ErrInvalidConfig) {
				t.Fatalf("Create() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCreateOnBehalfRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"), freeSubscriber("owner-2"))

	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}
	if _, err := svc.Create(context.Background(), ident, "owner-2", validConfig()); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("cross-subscriber Create() error = %v, want ErrForbidden", err)
	}

	adminIdent := authz.Identity{SubscriberID: "admin-1", Role: models.RoleAdmin}
	created, err := svc.Create(context.Background(), adminIdent, "owner-2", validConfig())
	if err != nil {
		t.Fatalf("admin Create() error: %v", err)
	}
	if created.SubscriberID != "owner-2" {
		t.Errorf("SubscriberID = %q, want owner-2", created.SubscriberID)
	}
}

func TestUpdateRevalidatesAgainstCurrentPlan(t *testing.T) {
	pro := models.Subscriber{ID: "owner-1", Plan: models.PlanPro, Role: models.RoleSubscriber, IsActive: true}
	svc, _, ownerRepo := newTestService(pro)
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	cfg := validConfig()
	cfg.Channels = []string{"email"}
	created, err := svc.Create(context.Background(), ident, "", cfg)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Downgrade the plan; the existing subscription stays put but the next
	// edit must re-pass validation.
	downgraded := ownerRepo.subscribers["owner-1"]
	downgraded.Plan = models.PlanFree
	ownerRepo.subscribers["owner-1"] = downgraded

	if _, err := svc.Update(context.Background(), ident, created.ID, cfg); !errors.Is(err, models.ErrChannelNotAllowed) {
		t.Fatalf("Update() after downgrade error = %v, want ErrChannelNotAllowed", err)
	}
}

func TestOverrideQuotaLiftsCeiling(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ownerIdent := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}
	adminIdent := authz.Identity{SubscriberID: "admin-1", Role: models.RoleAdmin}

	if _, err := svc.OverrideQuota(context.Background(), ownerIdent, "owner-1", nil, nil); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("subscriber OverrideQuota() error = %v, want ErrForbidden", err)
	}

	lifted := 3
	if _, err := svc.OverrideQuota(context.Background(), adminIdent, "owner-1", &lifted, nil); err != nil {
		t.Fatalf("admin OverrideQuota() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), ownerIdent, "", validConfig()); err != nil {
			t.Fatalf("Create() %d with override error: %v", i, err)
		}
	}
	if _, err := svc.Create(context.Background(), ownerIdent, "", validConfig()); !errors.Is(err, models.ErrQuotaExceeded) {
		t.Fatalf("fourth Create() error = %v, want ErrQuotaExceeded", err)
	}
}

func TestWildcardScopesCollapse(t *testing.T) {
	svc, _, _ := newTestService(freeSubscriber("owner-1"))
	ident := authz.Identity{SubscriberID: "owner-1", Role: models.RoleSubscriber}

	cfg := validConfig()
	cfg.Symbols = []string{"eurusd", "*", "gbpusd"}
	cfg.EventTypes = []string{"signal", "*"}

	created, err := svc.Create(context.Background(), ident, "", cfg)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if len(created.Symbols) != 1 || created.Symbols[0] != models.Wildcard {
		t.Errorf("symbols = %v, want collapsed wildcard", created.Symbols)
	}
	if len(created.EventTypes) != 1 || string(created.EventTypes[0]) != models.Wildcard {
		t.Errorf("event types = %v, want collapsed wildcard", created.EventTypes)
	}
}
