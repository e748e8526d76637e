package models

import "time"

// Component names a monitored host resource. Matching is exact and case-sensitive.
type Component string

const (
	ComponentCPU    Component = "CPU"
	ComponentMemory Component = "Memory"
	ComponentDisk   Component = "Disk"
)

// IsKnown reports whether c is one of the components a snapshot carries.
func (c Component) IsKnown() bool {
	switch c {
	case ComponentCPU, ComponentMemory, ComponentDisk:
		return true
	default:
		return false
	}
}

// MetricSnapshot is a point-in-time reading of host utilisation, in percent (0-100).
type MetricSnapshot struct {
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryUsage float64   `json:"memory_usage"`
	DiskUsage   float64   `json:"disk_usage"`
	CollectedAt time.Time `json:"collected_at"`
}

// Values maps component names to the snapshot's readings.
func (m MetricSnapshot) Values() map[Component]float64 {
	return map[Component]float64{
		ComponentCPU:    m.CPUUsage,
		ComponentMemory: m.MemoryUsage,
		ComponentDisk:   m.DiskUsage,
	}
}
