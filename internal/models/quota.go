package models

// PlanTier identifies a billing plan. Billing itself is external; the engine
// only consumes the limits attached to each tier.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanPremium    PlanTier = "premium"
	PlanEnterprise PlanTier = "enterprise"
)

func IsValidPlan(p PlanTier) bool {
	_, ok := planQuotas[p]
	return ok
}

// Quota holds the plan-tier ceilings consumed by the registry and the rate
// limiter. Read-only configuration; changed only by the plan collaborator.
type Quota struct {
	MaxEnabledSubscriptions int
	NotificationsPerHour    int
	AllowedChannels         []Channel
}

var ephemeralChannels = []Channel{ChannelInApp, ChannelPopup, ChannelSound}

var planQuotas = map[PlanTier]Quota{
	PlanFree: {
		MaxEnabledSubscriptions: 2,
		NotificationsPerHour:    50,
		AllowedChannels:         ephemeralChannels,
	},
	PlanPro: {
		MaxEnabledSubscriptions: 15,
		NotificationsPerHour:    200,
		AllowedChannels: append([]Channel{ChannelDesktop, ChannelEmail, ChannelWebhook},
			ephemeralChannels...),
	},
	PlanPremium: {
		MaxEnabledSubscriptions: 50,
		NotificationsPerHour:    1000,
		AllowedChannels: append([]Channel{ChannelDesktop, ChannelEmail, ChannelWebhook, ChannelTelegram},
			ephemeralChannels...),
	},
	PlanEnterprise: {
		MaxEnabledSubscriptions: 9999,
		NotificationsPerHour:    5000,
		AllowedChannels: append([]Channel{ChannelDesktop, ChannelEmail, ChannelWebhook, ChannelTelegram},
			ephemeralChannels...),
	},
}

// QuotaFor returns the limits for a plan, defaulting to free for unknown tiers.
func QuotaFor(plan PlanTier) Quota {
	if q, ok := planQuotas[plan]; ok {
		return q
	}
	return planQuotas[PlanFree]
}

// ChannelAllowed reports whether the quota's plan permits the channel.
// The broadcast channel is never granted by a plan; it is an admin capability.
func (q Quota) ChannelAllowed(c Channel) bool {
	for _, allowed := range q.AllowedChannels {
		if allowed == c {
			return true
		}
	}
	return false
}
