// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"

	"github.com/rpstub/cap/identity"
	"github.com/rpstub/cap/oidc"
)

// Result is everything the code leg of a login produced.
type Result struct {
	Token *oidc.Tk

	// IDTokenClaims are the verified id_token claims.
	IDTokenClaims map[string]interface{}

	UserInfo *oidc.UserInfo

	// CoreIdentity is the core identity claim's signature check. It's empty
	// when the user info has no such claim or the client is the doc checking
	// app.
	CoreIdentity identity.Result
}

// CoreIdentityPresent reports whether the user info carried a core identity.
func (r *Result) CoreIdentityPresent() bool { return r.CoreIdentity != "" }

// SuccessResponseFunc is used by Callbacks to create a http response when the
// callback is successful.
//
// The function state parameter will contain the state that was returned as
// part of a successful oidc authentication response. The function should use
// the http.ResponseWriter to send back whatever content it wishes to the
// client that originated the oidc flow.
type SuccessResponseFunc func(state string, r *Result, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the oidc authentication
// response. It also gets parameters for the oidc authentication error response
// and/or the callback error raised while processing the request.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
