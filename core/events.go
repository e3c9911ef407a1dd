package core

import "time"

type (
	Event struct {
		Name       string      `json:"name"`
		Key        string      `json:"key"`
		Data       interface{} `json:"data"`
		OccurredAt time.Time   `json:"occurred_at"` // UTC
	}

	// EventPublisher is any service that can publish domain events to subscribers.
	EventPublisher interface {
		// Publish publishes events asynchronously
		Publish(events ...Event)
	}
)
