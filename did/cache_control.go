// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import (
	"net/http"
	"time"

	"github.com/pquerna/cachecontrol/cacheobject"
)

// maxAge returns the response's Cache-Control max-age. A missing or
// unparseable header, or one without max-age, is zero: the key is refetched
// on every resolution.
func maxAge(h http.Header) time.Duration {
	v := h.Get("Cache-Control")
	if v == "" {
		return 0
	}
	directives, err := cacheobject.ParseResponseCacheControl(v)
	if err != nil || directives.MaxAge <= 0 {
		return 0
	}
	return time.Duration(directives.MaxAge) * time.Second
}
