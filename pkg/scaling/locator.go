// Package scaling holds the Auto Scaling group operations run inside one
// resolved account: locating a group, sampling its instance health and
// resuming its suspended scaling processes.
package scaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
)

// ErrGroupNotFound is returned when the account holds no group with the name.
var ErrGroupNotFound = errors.New("auto scaling group not found")

// DescribeAPI is the read side of the Auto Scaling API.
type DescribeAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
}

// Describe returns the group called name, or ErrGroupNotFound.
func Describe(ctx context.Context, client DescribeAPI, name string) (*types.AutoScalingGroup, error) {
	out, err := client.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{name},
	})
	if err != nil {
		return nil, fmt.Errorf("describe auto scaling group %s: %w", name, err)
	}

	for i := range out.AutoScalingGroups {
		group := &out.AutoScalingGroups[i]
		if aws.ToString(group.AutoScalingGroupARN) != "" {
			return group, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
}

// Exists reports whether the account behind client holds the group. An empty
// describe result is a normal false, not an error.
func Exists(ctx context.Context, client DescribeAPI, name string) (bool, error) {
	_, err := Describe(ctx, client, name)
	switch {
	case errors.Is(err, ErrGroupNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
