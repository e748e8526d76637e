package models

// ThresholdRule is a configured limit for one component. An empty
// ComponentName stands for an unset name and never matches.
type ThresholdRule struct {
	ID             string    `json:"id,omitempty" yaml:"id,omitempty"`
	ComponentName  Component `json:"component_name" yaml:"component_name"`
	ThresholdValue float64   `json:"threshold_value" yaml:"threshold_value"`
	Enabled        bool      `json:"enabled" yaml:"enabled"`
}

// EnabledOnly returns the enabled rules of rules, preserving order.
func EnabledOnly(rules []ThresholdRule) []ThresholdRule {
	out := make([]ThresholdRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}
