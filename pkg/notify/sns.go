// Package notify publishes resume results to an SNS topic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/rs/zerolog/log"

	"github.com/scttfrdmn/asgresume/pkg/orchestrator"
)

// maxSubjectLen is the SNS limit for email subjects.
const maxSubjectLen = 100

// SNSAPI is the subset of the SNS API used by SNSNotifier.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Message is the JSON body published for each run.
type Message struct {
	ASGName       string    `json:"asg_name"`
	Status        string    `json:"status"`
	StatusCode    int       `json:"status_code"`
	AccountID     string    `json:"account_id,omitempty"`
	RoleARN       string    `json:"role_arn,omitempty"`
	Health        string    `json:"health,omitempty"`
	Samples       int       `json:"samples,omitempty"`
	PollElapsed   string    `json:"poll_elapsed,omitempty"`
	Candidates    int       `json:"candidates"`
	Error         string    `json:"error,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Started       time.Time `json:"started"`
	Duration      string    `json:"duration"`
}

// SNSNotifier implements orchestrator.Notifier.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier creates a notifier for topicARN.
func NewSNSNotifier(client SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// NewMessage flattens a result for publishing.
func NewMessage(result orchestrator.Result) Message {
	msg := Message{
		ASGName:       result.ASGName,
		Status:        string(result.Status),
		StatusCode:    result.StatusCode(),
		AccountID:     result.AccountID,
		RoleARN:       result.RoleARN,
		Health:        result.Health(),
		Candidates:    len(result.Attempts),
		CorrelationID: result.CorrelationID,
		Started:       result.Started.UTC(),
		Duration:      result.Duration.String(),
	}
	if result.Polled {
		msg.Samples = result.Poll.Samples
		msg.PollElapsed = result.Poll.Elapsed.String()
	}
	if result.Err != nil {
		msg.Error = result.Err.Error()
	}
	return msg
}

// Notify publishes result. Status and ASG name are also sent as message
// attributes so subscriptions can filter on them.
func (n *SNSNotifier) Notify(ctx context.Context, result orchestrator.Result) error {
	body, err := json.Marshal(NewMessage(result))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	out, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(n.topicARN),
		Subject:           aws.String(subject(result)),
		Message:           aws.String(string(body)),
		MessageAttributes: messageAttributes(result),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.topicARN, err)
	}

	log.Debug().Str("topic", n.topicARN).Str("message_id", aws.ToString(out.MessageId)).Msg("Published result notification")
	return nil
}

// messageAttributes carries status and group name for subscription filters.
// SNS rejects empty attribute values, so an unnamed (Invalid) run sends
// status only.
func messageAttributes(result orchestrator.Result) map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{
		"status": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(result.Status)),
		},
	}
	if result.ASGName != "" {
		attrs["asg_name"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(result.ASGName),
		}
	}
	return attrs
}

func subject(result orchestrator.Result) string {
	s := fmt.Sprintf("ASG resume %s: %s", result.Status, result.ASGName)
	if len(s) > maxSubjectLen {
		s = s[:maxSubjectLen]
	}
	return s
}
