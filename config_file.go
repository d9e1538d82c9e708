package goWarden

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk configuration: the engine Config plus the scopes
// to register at startup.
type FileConfig struct {
	Config `yaml:",inline"`
	Scopes []ScopeSpec `yaml:"scopes"`
}

// ScopeSpec is the declarative subset of ScopeConfig. Hooks and value
// functions are code and cannot be expressed in a file.
type ScopeSpec struct {
	Name                string        `yaml:"name"`
	AccessTokenTTL      time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL     time.Duration `yaml:"refresh_token_ttl"`
	DisableRefreshToken bool          `yaml:"disable_refresh_token"`
}

// ScopeConfig converts s into a ScopeConfig.
func (s ScopeSpec) ScopeConfig() ScopeConfig {
	return ScopeConfig{
		AccessTokenTTL:      s.AccessTokenTTL,
		RefreshTokenTTL:     s.RefreshTokenTTL,
		DisableRefreshToken: s.DisableRefreshToken,
	}
}

// Register registers s into r.
func (s ScopeSpec) Register(r *Registry) (*Scope, error) {
	return r.Register(s.Name, s.ScopeConfig())
}

// RegisterScopes registers every scope of f into r, stopping at the first
// error.
func (f FileConfig) RegisterScopes(r *Registry) ([]*Scope, error) {
	out := make([]*Scope, 0, len(f.Scopes))
	for _, spec := range f.Scopes {
		scope, err := spec.Register(r)
		if err != nil {
			return out, fmt.Errorf("scope %q: %w", spec.Name, err)
		}
		out = append(out, scope)
	}
	return out, nil
}

// LoadConfigFile reads a YAML configuration from path. Fields absent from the
// file keep their DefaultConfig values. Unknown keys are rejected.
func LoadConfigFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (FileConfig, error) {
	fc := FileConfig{Config: defaultConfig()}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("parse config: %w", err)
	}

	if err := fc.Config.Validate(); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}
