package chathub

import "linkup/backend/internal/models"

// Client is one live connection to the gateway. It abstracts the transport so
// the hub can manage connections uniformly.
type Client interface {
	// GetUserID returns the verified user behind the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	GetSendChannel() chan<- models.ServerEvent

	// Run starts the connection's read and write pumps.
	Run()
	// Close shuts down the outbound channel, stopping the write pump.
	Close()
}

// InboundEvent pairs a decoded client frame with its origin connection.
type InboundEvent struct {
	Client Client
	Event  models.ClientEvent
}
