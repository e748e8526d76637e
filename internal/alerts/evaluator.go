package alerts

import (
	"time"

	"sentinel/internal/models"
)

// Evaluate returns one AlertEvent per rule whose component reading meets or
// exceeds the rule's threshold. Rules with an empty or unrecognised component
// name are skipped, as are disabled rules. Names are matched exactly, so
// "cpu" does not select the CPU reading.
//
// Evaluate performs no I/O and is safe for concurrent use.
func Evaluate(snapshot models.MetricSnapshot, rules []models.ThresholdRule, at time.Time) []models.AlertEvent {
	values := snapshot.Values()

	var events []models.AlertEvent
	for _, rule := range rules {
		if !rule.Enabled || rule.ComponentName == "" {
			continue
		}

		current, ok := values[rule.ComponentName]
		if !ok {
			continue
		}

		if current >= rule.ThresholdValue {
			events = append(events, models.AlertEvent{
				ComponentName:  rule.ComponentName,
				CurrentValue:   current,
				ThresholdValue: rule.ThresholdValue,
				Timestamp:      at,
			})
		}
	}
	return events
}
