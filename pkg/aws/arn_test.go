package aws

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountFromRoleARN(t *testing.T) {
	tests := []struct {
		name    string
		roleARN string
		want    string
		wantErr bool
	}{
		{
			name:    "standard role",
			roleARN: "arn:aws:iam::111111111111:role/ASGSchedulerCrossAccountRole",
			want:    "111111111111",
		},
		{
			name:    "role with path",
			roleARN: "arn:aws:iam::222222222222:role/ops/scheduler",
			want:    "222222222222",
		},
		{
			name:    "gov partition",
			roleARN: "arn:aws-us-gov:iam::333333333333:role/scheduler",
			want:    "333333333333",
		},
		{
			name:    "surrounding whitespace",
			roleARN: "  arn:aws:iam::444444444444:role/scheduler\n",
			want:    "444444444444",
		},
		{
			name:    "missing account",
			roleARN: "arn:aws:iam:::role/scheduler",
			wantErr: true,
		},
		{
			name:    "not an ARN",
			roleARN: "ASGSchedulerCrossAccountRole",
			wantErr: true,
		},
		{
			name:    "empty",
			roleARN: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AccountFromRoleARN(tt.roleARN)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "asg-scheduler-111111111111", SessionName("", "111111111111"))
	assert.Equal(t, "ops-111111111111", SessionName("ops", "111111111111"))

	long := SessionName(strings.Repeat("x", 80), "111111111111")
	assert.Len(t, long, maxSessionNameLen)
}
