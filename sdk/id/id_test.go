// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/hashicorp/go-uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prefix  string
		byteLen int
		wantLen int
	}{
		{
			name:    "valid",
			prefix:  "id",
			wantLen: base64.RawURLEncoding.EncodedLen(DefaultByteLen) + len("id_"),
		},
		{
			name:    "no-prefix",
			wantLen: base64.RawURLEncoding.EncodedLen(DefaultByteLen),
		},
		{
			name:    "custom-len",
			byteLen: 16,
			wantLen: base64.RawURLEncoding.EncodedLen(16),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := New(tt.prefix, tt.byteLen)
			require.NoError(err)
			if tt.prefix != "" {
				assert.True(strings.HasPrefix(got, tt.prefix+"_"))
			}
			assert.Len(got, tt.wantLen)
			assert.NotContains(got, "=")
		})
	}
	t.Run("unique", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		a, err := New("", 0)
		require.NoError(err)
		b, err := New("", 0)
		require.NoError(err)
		assert.NotEqual(a, b)
	})
}

func TestNewUUID(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	got, err := NewUUID()
	require.NoError(err)
	_, err = uuid.ParseUUID(got)
	assert.NoError(err)
}
