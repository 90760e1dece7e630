// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrompts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		in        string
		want      []Prompt
		wantErr   bool
		wantIsErr error
	}{
		{name: "blank", in: "  "},
		{name: "none", in: "none", want: []Prompt{None}},
		{name: "login-consent", in: "login  consent", want: []Prompt{Login, Consent}},
		{name: "create", in: "create", want: []Prompt{Create}},
		{name: "select-account", in: "select_account", want: []Prompt{SelectAccount}},
		{name: "none-combined", in: "none login", wantErr: true, wantIsErr: ErrInvalidPrompt},
		{name: "unknown", in: "login bogus", wantErr: true, wantIsErr: ErrInvalidPrompt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := ParsePrompts(tt.in)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func Test_promptString(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("", promptString(nil))
	assert.Equal("login consent", promptString([]Prompt{Login, Consent}))
}
