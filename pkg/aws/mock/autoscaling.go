package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
)

// MockAutoScalingClient provides an in-memory Auto Scaling API for one account.
type MockAutoScalingClient struct {
	mu sync.RWMutex

	AccountID string
	Region    string

	// Mock data storage, keyed by group name
	Groups map[string]*types.AutoScalingGroup

	// Errors to return for specific operations (for error testing)
	DescribeAutoScalingGroupsErr error
	ResumeProcessesErr           error

	// Call tracking
	DescribeAutoScalingGroupsCalls int
	ResumeProcessesCalls           int
	ResumeProcessesInputs          []autoscaling.ResumeProcessesInput
}

// NewMockAutoScalingClient creates an empty mock for accountID.
func NewMockAutoScalingClient(accountID string) *MockAutoScalingClient {
	return &MockAutoScalingClient{
		AccountID: accountID,
		Region:    "us-east-1",
		Groups:    make(map[string]*types.AutoScalingGroup),
	}
}

// AddGroup registers a group with one instance per health status and the
// given suspended processes.
func (m *MockAutoScalingClient) AddGroup(name string, healthStatuses []string, suspended ...string) *types.AutoScalingGroup {
	m.mu.Lock()
	defer m.mu.Unlock()

	group := &types.AutoScalingGroup{
		AutoScalingGroupName: strPtr(name),
		AutoScalingGroupARN: strPtr(fmt.Sprintf(
			"arn:aws:autoscaling:%s:%s:autoScalingGroup:%s:autoScalingGroupName/%s",
			m.Region, m.AccountID, randomID(), name)),
	}
	group.Instances = buildInstances(healthStatuses)
	for _, p := range suspended {
		group.SuspendedProcesses = append(group.SuspendedProcesses, types.SuspendedProcess{
			ProcessName:      strPtr(p),
			SuspensionReason: strPtr("User suspended at maintenance window"),
		})
	}

	m.Groups[name] = group
	return group
}

// SetInstanceHealth replaces the members of a group with one instance per status.
func (m *MockAutoScalingClient) SetInstanceHealth(name string, healthStatuses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if group, ok := m.Groups[name]; ok {
		group.Instances = buildInstances(healthStatuses)
	}
}

// SuspendedProcesses returns the names of the processes still suspended on a group.
func (m *MockAutoScalingClient) SuspendedProcesses(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.Groups[name]
	if !ok {
		return nil
	}
	var names []string
	for _, p := range group.SuspendedProcesses {
		names = append(names, *p.ProcessName)
	}
	return names
}

func (m *MockAutoScalingClient) DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DescribeAutoScalingGroupsCalls++

	if m.DescribeAutoScalingGroupsErr != nil {
		return nil, m.DescribeAutoScalingGroupsErr
	}

	out := &autoscaling.DescribeAutoScalingGroupsOutput{}
	if len(params.AutoScalingGroupNames) == 0 {
		for _, group := range m.Groups {
			out.AutoScalingGroups = append(out.AutoScalingGroups, copyGroup(group))
		}
		return out, nil
	}

	for _, name := range params.AutoScalingGroupNames {
		if group, ok := m.Groups[name]; ok {
			out.AutoScalingGroups = append(out.AutoScalingGroups, copyGroup(group))
		}
	}
	return out, nil
}

func (m *MockAutoScalingClient) ResumeProcesses(ctx context.Context, params *autoscaling.ResumeProcessesInput, optFns ...func(*autoscaling.Options)) (*autoscaling.ResumeProcessesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResumeProcessesCalls++
	m.ResumeProcessesInputs = append(m.ResumeProcessesInputs, *params)

	if m.ResumeProcessesErr != nil {
		return nil, m.ResumeProcessesErr
	}

	name := ""
	if params.AutoScalingGroupName != nil {
		name = *params.AutoScalingGroupName
	}
	group, ok := m.Groups[name]
	if !ok {
		return nil, fmt.Errorf("ValidationError: AutoScalingGroup name not found - no such group: %s", name)
	}

	// An empty process list resumes everything, matching the real API.
	resume := make(map[string]bool, len(params.ScalingProcesses))
	for _, p := range params.ScalingProcesses {
		resume[p] = true
	}

	kept := group.SuspendedProcesses[:0]
	for _, p := range group.SuspendedProcesses {
		if len(resume) > 0 && !resume[*p.ProcessName] {
			kept = append(kept, p)
		}
	}
	group.SuspendedProcesses = kept

	return &autoscaling.ResumeProcessesOutput{}, nil
}

func buildInstances(healthStatuses []string) []types.Instance {
	instances := make([]types.Instance, 0, len(healthStatuses))
	for _, status := range healthStatuses {
		instances = append(instances, types.Instance{
			InstanceId:     strPtr(fmt.Sprintf("i-%s", randomID())),
			HealthStatus:   strPtr(status),
			LifecycleState: types.LifecycleStateInService,
		})
	}
	return instances
}

func copyGroup(group *types.AutoScalingGroup) types.AutoScalingGroup {
	c := *group
	c.Instances = append([]types.Instance(nil), group.Instances...)
	c.SuspendedProcesses = append([]types.SuspendedProcess(nil), group.SuspendedProcesses...)
	return c
}
