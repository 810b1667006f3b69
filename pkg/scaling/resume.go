package scaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/rs/zerolog/log"
)

// ErrResume wraps any failure of the resume call.
var ErrResume = errors.New("resume scaling processes failed")

// Scaling process names resumed after maintenance. Other suspended processes
// (AZRebalance, AlarmNotification, ...) are left alone.
const (
	ProcessLaunch    = "Launch"
	ProcessTerminate = "Terminate"
)

// ResumedProcesses returns the process list sent to ResumeProcesses.
func ResumedProcesses() []string {
	return []string{ProcessLaunch, ProcessTerminate}
}

// ResumeAPI is the write side of the Auto Scaling API.
type ResumeAPI interface {
	ResumeProcesses(ctx context.Context, params *autoscaling.ResumeProcessesInput, optFns ...func(*autoscaling.Options)) (*autoscaling.ResumeProcessesOutput, error)
}

// Resume re-enables Launch and Terminate on the group. Resuming an already
// active process is a no-op on the API side, so repeated calls succeed.
func Resume(ctx context.Context, client ResumeAPI, name string) error {
	_, err := client.ResumeProcesses(ctx, &autoscaling.ResumeProcessesInput{
		AutoScalingGroupName: aws.String(name),
		ScalingProcesses:     ResumedProcesses(),
	})
	if err != nil {
		log.Error().Err(err).Str("asg", name).Msg("Error resuming ASG scaling")
		return fmt.Errorf("%w: %s: %w", ErrResume, name, err)
	}

	log.Info().Str("asg", name).Strs("processes", ResumedProcesses()).Msg("Resumed ASG scaling processes")
	return nil
}
