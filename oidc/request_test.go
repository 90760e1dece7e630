// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewRequest(t *testing.T) {
	t.Parallel()
	testNow := func() time.Time { return time.Unix(1700000000, 0) }
	noMethod, err := NewCodeVerifier()
	require.NoError(t, err)
	noMethod.method = ""

	tests := []struct {
		name        string
		redirectURL string
		opt         []Option
		wantErr     bool
		wantIsErr   error
		check       func(*testing.T, *Req)
	}{
		{
			name:        "defaults",
			redirectURL: "https://rp.example.com/callback",
			check: func(t *testing.T, r *Req) {
				assert := assert.New(t)
				assert.NotEmpty(r.State())
				assert.NotEmpty(r.Nonce())
				assert.NotEqual(r.State(), r.Nonce())
				assert.Equal([]string{"openid"}, r.Scopes())
				assert.NotNil(r.ClaimsRequest())
				assert.Equal(0, r.ClaimsRequest().Len())
				assert.Nil(r.UILocales())
				_, ok := r.Channel()
				assert.False(ok)
			},
		},
		{
			name:        "all-options",
			redirectURL: "https://rp.example.com/callback",
			opt: []Option{
				WithState("state"),
				WithNonce("nonce"),
				WithScopes("email", "openid", " phone ", "email"),
				WithVTR(VTR{"Cl"}),
				WithUILocales("cy"),
				WithPrompts(Login, Consent),
				WithRPSID(" sid "),
				WithIDTokenHint("hint"),
				WithMaxAge(" 60 "),
				WithLoginHint("alice@example.com"),
				WithChannel("generic_app"),
				WithNow(testNow),
			},
			check: func(t *testing.T, r *Req) {
				assert := assert.New(t)
				assert.Equal("state", r.State())
				assert.Equal("nonce", r.Nonce())
				assert.Equal([]string{"openid", "email", "phone"}, r.Scopes())
				assert.Equal(VTR{"Cl"}, r.VTR())
				assert.Equal([]language.Tag{language.MustParse("cy")}, r.UILocales())
				assert.Equal([]Prompt{Login, Consent}, r.Prompts())
				assert.Equal("sid", r.RPSID())
				assert.Equal(IDToken("hint"), r.IDTokenHint())
				assert.Equal("60", r.MaxAge())
				assert.Equal("alice@example.com", r.LoginHint())
				ch, ok := r.Channel()
				assert.True(ok)
				assert.Equal("generic_app", ch)
				assert.Equal(testNow(), r.CreatedAt())
			},
		},
		{
			name:        "unparseable-ui-locales-dropped",
			redirectURL: "https://rp.example.com/callback",
			opt:         []Option{WithUILocales("!!")},
			check: func(t *testing.T, r *Req) {
				assert.Nil(t, r.UILocales())
			},
		},
		{
			name:        "relative-redirect",
			redirectURL: "/callback",
			wantErr:     true,
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:        "state-equals-nonce",
			redirectURL: "https://rp.example.com/callback",
			opt:         []Option{WithState("same"), WithNonce("same")},
			wantErr:     true,
			wantIsErr:   ErrInvalidParameter,
		},
		{
			name:        "bad-prompt",
			redirectURL: "https://rp.example.com/callback",
			opt:         []Option{WithPrompts(None, Login)},
			wantErr:     true,
			wantIsErr:   ErrInvalidPrompt,
		},
		{
			name:        "verifier-without-method",
			redirectURL: "https://rp.example.com/callback",
			opt:         []Option{WithPKCE(noMethod)},
			wantErr:     true,
			wantIsErr:   ErrMissingChallengeMethod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewRequest(tt.redirectURL, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equal(tt.redirectURL, got.RedirectURL())
			tt.check(t, got)
		})
	}
}

func Test_WithChannel(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := getReqOpts(WithChannel(""))
	require.NotNil(t, opts.withChannel)
	assert.Equal("", *opts.withChannel)
	assert.Nil(getReqOpts().withChannel)
}
