package feed

import "modcheck/backend/internal/storage"

// Event is what moderators receive; it mirrors the cache refresh announcement.
type Event = storage.RefreshEvent

// Client is a connected moderator view.
type Client interface {
	// GetModeratorID returns the moderator the connection belongs to.
	GetModeratorID() string
	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- Event
	// Run starts the client's pumps.
	Run()
	// Close shuts down the send channel, which ends the write pump.
	Close()
}
