package models

// Channel is one delivery surface for a notification.
type Channel string

const (
	// Ephemeral, client-driven channels. The client picks these up on its
	// next poll; there is nothing to deliver server-side.
	ChannelInApp Channel = "in_app"
	ChannelPopup Channel = "popup"
	ChannelSound Channel = "sound"

	// Durable push-style channels, delivered at-least-once with retry.
	ChannelDesktop  Channel = "desktop"
	ChannelTelegram Channel = "telegram"

	// Addressed channels. Delivery requires a verified address on the
	// subscriber and is rejected with ErrChannelUnavailable otherwise.
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"

	// Operator-curated public feed. Assignable only by administrators.
	ChannelBroadcast Channel = "broadcast"
)

var allChannels = map[Channel]bool{
	ChannelInApp:     true,
	ChannelPopup:     true,
	ChannelSound:     true,
	ChannelDesktop:   true,
	ChannelTelegram:  true,
	ChannelEmail:     true,
	ChannelWebhook:   true,
	ChannelBroadcast: true,
}

func IsValidChannel(c Channel) bool {
	return allChannels[c]
}

// IsEphemeral reports whether the channel is served purely by client polling.
func (c Channel) IsEphemeral() bool {
	switch c {
	case ChannelInApp, ChannelPopup, ChannelSound:
		return true
	}
	return false
}

// IsAddressed reports whether delivery depends on a subscriber-provided address.
func (c Channel) IsAddressed() bool {
	return c == ChannelEmail || c == ChannelWebhook
}

// RequiresAdmin reports whether only an administrator may assign the channel.
func (c Channel) RequiresAdmin() bool {
	return c == ChannelBroadcast
}
