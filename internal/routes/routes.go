package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/handlers"
	"github.com/whilber-ai/alert-engine/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	subscriptions *handlers.SubscriptionHandler,
	notifications *handlers.NotificationHandler,
	subscribers *handlers.SubscriberHandler,
	events *handlers.EventHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check and metrics
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Authenticated API
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	api.HandleFunc("/subscriptions", subscriptions.Create).Methods(http.MethodPost)
	api.HandleFunc("/subscriptions", subscriptions.List).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/{subscriptionID}", subscriptions.Update).Methods(http.MethodPut)
	api.HandleFunc("/subscriptions/{subscriptionID}", subscriptions.Disable).Methods(http.MethodDelete)

	api.HandleFunc("/notifications", notifications.Poll).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", notifications.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{notificationID}/read", notifications.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications", notifications.Clear).Methods(http.MethodDelete)

	api.HandleFunc("/subscribers/me", subscribers.Me).Methods(http.MethodGet)
	api.HandleFunc("/subscribers/me/contact", subscribers.UpdateContact).Methods(http.MethodPut)

	// Admin-only operations
	adminOnly := authz.RequireRole(models.RoleAdmin)
	api.Handle("/events", adminOnly(http.HandlerFunc(events.Ingest))).Methods(http.MethodPost)
	api.Handle("/subscribers/{subscriberID}/plan", adminOnly(http.HandlerFunc(subscribers.UpdatePlan))).Methods(http.MethodPut)
	api.Handle("/subscribers/{subscriberID}/quota", adminOnly(http.HandlerFunc(subscriptions.OverrideQuota))).Methods(http.MethodPut)

	return router
}
