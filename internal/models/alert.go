package models

import (
	"fmt"
	"time"
)

// AlertEvent is produced when a component's current value meets or exceeds a rule's threshold.
type AlertEvent struct {
	ComponentName  Component `json:"component_name"`
	CurrentValue   float64   `json:"current_value"`
	ThresholdValue float64   `json:"threshold_value"`
	Timestamp      time.Time `json:"timestamp"`
}

// Message renders the human readable alert line.
func (a AlertEvent) Message() string {
	return fmt.Sprintf("%s has reached its threshold: current %.1f%%, threshold %.1f%%",
		a.ComponentName, a.CurrentValue, a.ThresholdValue)
}
