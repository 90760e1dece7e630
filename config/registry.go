// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"

	"github.com/rpstub/cap/oidc"
	"gopkg.in/yaml.v3"
)

// Profile is one relying party as written in the profile file.
type Profile struct {
	// Name is the profile's key in the file.
	Name string `yaml:"-"`

	ClientID                       string            `yaml:"client_id"`
	ClientType                     string            `yaml:"client_type"`
	ClientPrivateKey               string            `yaml:"client_private_key"`
	ClientPrivateKeyID             string            `yaml:"client_private_key_id"`
	IdentitySigningKeyURL          string            `yaml:"identity_signing_key_url"`
	AccountManagementURL           string            `yaml:"account_management_url"`
	IDTokenSigningAlgorithm        string            `yaml:"id_token_signing_algorithm"`
	ServiceName                    string            `yaml:"service_name"`
	OPBaseURL                      string            `yaml:"op_base_url"`
	TokenClientSecret              oidc.ClientSecret `yaml:"token_client_secret"`
	InheritedIdentityJWTSigningKey string            `yaml:"inherited_identity_jwt_signing_key"`
}

// Registry holds the profiles in file order.
type Registry struct {
	settings Settings
	names    []string
	profiles map[string]Profile
}

// LoadRegistry reads the profiles named by the settings. Sources other than
// LocalSource give an empty registry.
func LoadRegistry(s *Settings) (*Registry, error) {
	const op = "config.LoadRegistry"
	if s == nil {
		return nil, fmt.Errorf("%s: settings are nil: %w", op, ErrMissingConfiguration)
	}
	if s.ConfigurationSource != LocalSource {
		return NewRegistry(s, nil)
	}
	b, err := os.ReadFile(s.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read %s: %w: %w", op, s.ConfigPath, ErrMissingConfiguration, err)
	}
	r, err := NewRegistry(s, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// NewRegistry parses a profile document, a JSON or YAML object keyed by
// profile name. Empty data gives an empty registry.
func NewRegistry(s *Settings, data []byte) (*Registry, error) {
	const op = "config.NewRegistry"
	if s == nil {
		return nil, fmt.Errorf("%s: settings are nil: %w", op, ErrMissingConfiguration)
	}
	r := &Registry{settings: *s, profiles: map[string]Profile{}}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidConfiguration, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return r, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: profiles must be an object keyed by name: %w", op, ErrInvalidConfiguration)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var p Profile
		if err := root.Content[i+1].Decode(&p); err != nil {
			return nil, fmt.Errorf("%s: profile %q: %w: %w", op, name, ErrInvalidConfiguration, err)
		}
		p.Name = name
		if _, dup := r.profiles[name]; !dup {
			r.names = append(r.names, name)
		}
		r.profiles[name] = p
	}
	return r, nil
}

// Names returns the profile names in file order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int { return len(r.names) }

// Settings returns the settings the registry was built with.
func (r *Registry) Settings() Settings { return r.settings }

// Profile returns the named profile. An empty name falls back to the
// DefaultClientID setting and then to the first profile in the file.
func (r *Registry) Profile(name string) (Profile, error) {
	const op = "Registry.Profile"
	if name == "" {
		name = r.settings.DefaultClientID
	}
	if name == "" {
		if len(r.names) == 0 {
			return Profile{}, fmt.Errorf("%s: empty or missing configuration: %w", op, ErrMissingConfiguration)
		}
		return r.profiles[r.names[0]], nil
	}
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%s: %q: %w", op, name, ErrProfileNotFound)
	}
	return p, nil
}

// Config returns a validated provider config for the named profile, resolved
// the same way as Profile. Extra options are applied after the profile's.
func (r *Registry) Config(name string, opt ...oidc.Option) (*oidc.Config, error) {
	const op = "Registry.Config"
	p, err := r.Profile(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	callback, err := r.settings.CallbackURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	postLogout, err := r.settings.PostLogoutRedirectURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := []oidc.Option{
		oidc.WithClientSecret(p.TokenClientSecret),
		oidc.WithClientType(oidc.ClientType(p.ClientType)),
		oidc.WithSigningKeyID(p.ClientPrivateKeyID),
		oidc.WithIDTokenSigningAlg(oidc.Alg(p.IDTokenSigningAlgorithm)),
		oidc.WithIdentitySigningKeyURL(p.IdentitySigningKeyURL),
		oidc.WithInheritedIdentitySigningKey(p.InheritedIdentityJWTSigningKey),
		oidc.WithPostLogoutRedirectURL(postLogout),
		oidc.WithAccountManagementURL(p.AccountManagementURL),
		oidc.WithServiceName(p.ServiceName),
	}
	c, err := oidc.NewConfig(p.OPBaseURL, p.ClientID, p.ClientPrivateKey, callback, append(opts, opt...)...)
	if err != nil {
		return nil, fmt.Errorf("%s: profile %q: %w", op, p.Name, err)
	}
	return c, nil
}
