// Package config loads runtime settings and the cross-account role list the
// orchestrator iterates over.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/scttfrdmn/asgresume/pkg/observability"
)

// EnvPrefix is prepended to every environment variable, e.g.
// ASGRESUME_CONFIG_TABLE for config_table.
const EnvPrefix = "ASGRESUME"

// Role sources.
const (
	SourceDynamoDB = "dynamodb"
	SourceSSM      = "ssm"
	SourceFile     = "file"
	SourceStatic   = "static"
)

// Defaults matching the scheduler deployment this tool runs next to.
const (
	DefaultConfigTable        = "ec2scheduler-ConfigTable"
	DefaultConfigKeyAttribute = "type"
	DefaultConfigKeyValue     = "config"
	DefaultRolesAttribute     = "cross_account_roles"
	DefaultSessionPrefix      = "asg-scheduler"
	DefaultSessionDuration    = time.Hour
	DefaultPollInterval       = 30 * time.Second
	DefaultTimeout            = 10 * time.Minute
	DefaultResumeReserve      = 15 * time.Second
)

// Settings is the full runtime configuration.
type Settings struct {
	Region string `mapstructure:"region" yaml:"region"`

	RoleSource         string   `mapstructure:"role_source" yaml:"role_source" validate:"oneof=dynamodb ssm file static"`
	ConfigTable        string   `mapstructure:"config_table" yaml:"config_table"`
	ConfigKeyAttribute string   `mapstructure:"config_key_attribute" yaml:"config_key_attribute"`
	ConfigKeyValue     string   `mapstructure:"config_key_value" yaml:"config_key_value"`
	RolesAttribute     string   `mapstructure:"roles_attribute" yaml:"roles_attribute"`
	SSMParameter       string   `mapstructure:"ssm_parameter" yaml:"ssm_parameter"`
	RolesFile          string   `mapstructure:"roles_file" yaml:"roles_file"`
	Roles              []string `mapstructure:"roles" yaml:"roles"`

	SessionPrefix   string        `mapstructure:"session_prefix" yaml:"session_prefix" validate:"max=48"`
	SessionDuration time.Duration `mapstructure:"session_duration" yaml:"session_duration" validate:"gte=0"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	ResumeReserve   time.Duration `mapstructure:"resume_reserve" yaml:"resume_reserve" validate:"gte=0"`

	NotifyTopicARN string `mapstructure:"notify_topic_arn" yaml:"notify_topic_arn" validate:"omitempty,startswith=arn:"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	Tracing observability.TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics observability.MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// SetDefaults registers every key on v. Keys without a meaningful default are
// still registered so environment variables can reach them on Unmarshal.
func SetDefaults(v *viper.Viper) {
	obs := observability.DefaultConfig()

	v.SetDefault("region", "")
	v.SetDefault("role_source", SourceDynamoDB)
	v.SetDefault("config_table", DefaultConfigTable)
	v.SetDefault("config_key_attribute", DefaultConfigKeyAttribute)
	v.SetDefault("config_key_value", DefaultConfigKeyValue)
	v.SetDefault("roles_attribute", DefaultRolesAttribute)
	v.SetDefault("ssm_parameter", "")
	v.SetDefault("roles_file", "")
	v.SetDefault("roles", []string{})

	v.SetDefault("session_prefix", DefaultSessionPrefix)
	v.SetDefault("session_duration", DefaultSessionDuration)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("resume_reserve", DefaultResumeReserve)

	v.SetDefault("notify_topic_arn", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("tracing.enabled", obs.Tracing.Enabled)
	v.SetDefault("tracing.exporter", obs.Tracing.Exporter)
	v.SetDefault("tracing.sampling_rate", obs.Tracing.SamplingRate)
	v.SetDefault("metrics.enabled", obs.Metrics.Enabled)
	v.SetDefault("metrics.port", obs.Metrics.Port)
	v.SetDefault("metrics.path", obs.Metrics.Path)
	v.SetDefault("metrics.bind", obs.Metrics.Bind)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional YAML file into v and decodes the result. Precedence
// is flags bound on v, then environment, then file, then defaults.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.Roles = cleanRoles(s.Roles)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks field constraints and the inputs required by the chosen
// role source.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	var errs []error
	switch s.RoleSource {
	case SourceDynamoDB:
		if s.ConfigTable == "" || s.ConfigKeyAttribute == "" || s.RolesAttribute == "" {
			errs = append(errs, errors.New("dynamodb role source needs config_table, config_key_attribute and roles_attribute"))
		}
	case SourceSSM:
		if s.SSMParameter == "" {
			errs = append(errs, errors.New("ssm role source needs ssm_parameter"))
		}
	case SourceFile:
		if s.RolesFile == "" {
			errs = append(errs, errors.New("file role source needs roles_file"))
		}
	case SourceStatic:
		if len(s.Roles) == 0 {
			errs = append(errs, errors.New("static role source needs at least one role"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// cleanRoles trims entries and drops blanks, keeping order.
func cleanRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
