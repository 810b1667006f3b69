package scaling

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// HealthStatus is the per-instance health reported by Auto Scaling.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "Healthy"
	StatusUnhealthy HealthStatus = "Unhealthy"
)

// IsHealthy reports whether s is the Healthy status. Auto Scaling documents
// the values in title case but they are compared case-insensitively.
func (s HealthStatus) IsHealthy() bool {
	return strings.EqualFold(string(s), string(StatusHealthy))
}

// InstanceHealth is one member of a group as seen by a single sample.
type InstanceHealth struct {
	InstanceID     string
	Status         HealthStatus
	LifecycleState string
}

// Sample is the membership health of a group at one polling tick.
type Sample struct {
	ASGName   string
	Instances []InstanceHealth
	TakenAt   time.Time
}

// Healthy reports whether every current member is Healthy. A group with no
// members is vacuously healthy.
func (s Sample) Healthy() bool {
	for _, inst := range s.Instances {
		if !inst.Status.IsHealthy() {
			return false
		}
	}
	return true
}

// Unhealthy returns the members that are not Healthy.
func (s Sample) Unhealthy() []InstanceHealth {
	var out []InstanceHealth
	for _, inst := range s.Instances {
		if !inst.Status.IsHealthy() {
			out = append(out, inst)
		}
	}
	return out
}

// Statuses returns the raw health status of every member, in describe order.
func (s Sample) Statuses() []string {
	out := make([]string, 0, len(s.Instances))
	for _, inst := range s.Instances {
		out = append(out, string(inst.Status))
	}
	return out
}

// SampleHealth describes the group once and captures its members' health.
func SampleHealth(ctx context.Context, client DescribeAPI, name string, now time.Time) (Sample, error) {
	group, err := Describe(ctx, client, name)
	if err != nil {
		return Sample{}, err
	}

	sample := Sample{
		ASGName:   name,
		Instances: make([]InstanceHealth, 0, len(group.Instances)),
		TakenAt:   now,
	}
	for _, inst := range group.Instances {
		sample.Instances = append(sample.Instances, InstanceHealth{
			InstanceID:     aws.ToString(inst.InstanceId),
			Status:         HealthStatus(aws.ToString(inst.HealthStatus)),
			LifecycleState: string(inst.LifecycleState),
		})
	}
	return sample, nil
}
