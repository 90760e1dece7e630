// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package config loads the relying party profiles and the environment
// settings that pick between them.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// LocalSource reads profiles from the file at ConfigPath.
	LocalSource = "local"

	DefaultConfigPath = "config.json"

	envStubURL             = "STUB_URL"
	envDefaultClientID     = "DEFAULT_CLIENT_ID"
	envConfigurationSource = "CONFIGURATION_SOURCE"
	envConfigPath          = "CONFIG_PATH"
)

// Settings are the process level settings read from the environment.
type Settings struct {
	// StubURL is the public base URL of this relying party. Callback and
	// post logout URLs hang off it.
	StubURL string

	// DefaultClientID names the profile used when a request doesn't name one.
	DefaultClientID string

	// ConfigurationSource is where profiles come from. Only LocalSource reads
	// anything.
	ConfigurationSource string

	ConfigPath string
}

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type settingsOptions struct {
	withEnvFile string
}

func getSettingsOpts(opt ...Option) settingsOptions {
	var opts settingsOptions
	ApplyOpts(&opts, opt...)
	return opts
}

// WithEnvFile provides an optional .env file. Its values are used only for
// variables the process environment doesn't set. A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o interface{}) {
		if v, ok := o.(*settingsOptions); ok {
			v.withEnvFile = path
		}
	}
}

// LoadSettings reads the settings from the environment.
//
// Options supported: WithEnvFile
func LoadSettings(opt ...Option) (*Settings, error) {
	const op = "config.LoadSettings"
	opts := getSettingsOpts(opt...)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(envConfigurationSource, LocalSource)
	v.SetDefault(envConfigPath, DefaultConfigPath)

	if opts.withEnvFile != "" {
		if _, err := os.Stat(opts.withEnvFile); err == nil {
			values, err := godotenv.Read(opts.withEnvFile)
			if err != nil {
				return nil, fmt.Errorf("%s: unable to read %s: %w: %w", op, opts.withEnvFile, ErrInvalidConfiguration, err)
			}
			for k, val := range values {
				v.SetDefault(k, val)
			}
		}
	}

	s := &Settings{
		StubURL:             strings.TrimSuffix(strings.TrimSpace(v.GetString(envStubURL)), "/"),
		DefaultClientID:     strings.TrimSpace(v.GetString(envDefaultClientID)),
		ConfigurationSource: strings.TrimSpace(v.GetString(envConfigurationSource)),
		ConfigPath:          strings.TrimSpace(v.GetString(envConfigPath)),
	}
	if s.ConfigurationSource == "" {
		s.ConfigurationSource = LocalSource
	}
	if s.ConfigPath == "" {
		s.ConfigPath = DefaultConfigPath
	}
	return s, nil
}

// CallbackURL is the authorization callback every profile uses.
func (s *Settings) CallbackURL() (string, error) {
	const op = "Settings.CallbackURL"
	if s.StubURL == "" {
		return "", fmt.Errorf("%s: no stub url configured: %w", op, ErrMissingConfiguration)
	}
	return s.StubURL + "/oidc/authorization-code/callback", nil
}

// PostLogoutRedirectURL is where the provider returns the user after logout.
func (s *Settings) PostLogoutRedirectURL() (string, error) {
	const op = "Settings.PostLogoutRedirectURL"
	if s.StubURL == "" {
		return "", fmt.Errorf("%s: no stub url configured: %w", op, ErrMissingConfiguration)
	}
	return s.StubURL + "/signed-out", nil
}
