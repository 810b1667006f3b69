package aws

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// DefaultSessionPrefix is prepended to the account ID to build the
// RoleSessionName of every assumed-role session.
const DefaultSessionPrefix = "asg-scheduler"

// maxSessionNameLen is the STS limit for RoleSessionName.
const maxSessionNameLen = 64

// AccountFromRoleARN returns the account segment of a role ARN
// (arn:aws:iam::<account>:role/<name>).
func AccountFromRoleARN(roleARN string) (string, error) {
	parsed, err := arn.Parse(strings.TrimSpace(roleARN))
	if err != nil {
		return "", fmt.Errorf("invalid role ARN %q: %w", roleARN, err)
	}
	if parsed.AccountID == "" {
		return "", fmt.Errorf("role ARN %q has no account ID", roleARN)
	}
	return parsed.AccountID, nil
}

// SessionName derives the assumed-role session name for an account so that
// CloudTrail entries in the target account can be traced back to this tool.
func SessionName(prefix, accountID string) string {
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	name := fmt.Sprintf("%s-%s", prefix, accountID)
	if len(name) > maxSessionNameLen {
		name = name[:maxSessionNameLen]
	}
	return name
}
