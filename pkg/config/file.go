package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileStore reads roles from a local YAML document:
//
//	cross_account_roles:
//	  - arn:aws:iam::111111111111:role/asg-scheduler
type FileStore struct {
	path string
}

type roleFile struct {
	CrossAccountRoles []string `yaml:"cross_account_roles"`
}

// NewFileStore creates a store for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the file.
func (s *FileStore) Load(ctx context.Context) (*RoleConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoConfig, s.path)
		}
		return nil, fmt.Errorf("failed to read roles file: %w", err)
	}

	var f roleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse roles file %s: %w", s.path, err)
	}

	roles := cleanRoles(f.CrossAccountRoles)
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: %s lists no roles", ErrNoConfig, s.path)
	}
	return &RoleConfig{CrossAccountRoles: roles, Source: SourceFile}, nil
}
