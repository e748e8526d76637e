package models

import (
	"time"

	"github.com/google/uuid"
)

// Envelope wraps an AlertEvent with delivery metadata
type Envelope struct {
	ID    string      `json:"id"`
	Alert *AlertEvent `json:"alert"`

	// Delivery metadata
	ReceivedAt   time.Time `json:"received_at"`
	Node         string    `json:"node"`
	Message      string    `json:"message"`
	PartitionKey string    `json:"partition_key"`
}

// NewEnvelope creates a new envelope wrapping an alert event
func NewEnvelope(alert *AlertEvent, node string) *Envelope {
	return &Envelope{
		ID:           uuid.New().String(),
		Alert:        alert,
		ReceivedAt:   time.Now().UTC(),
		Node:         node,
		Message:      alert.Message(),
		PartitionKey: string(alert.ComponentName), // keeps one component's alerts ordered
	}
}
