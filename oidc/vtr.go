// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"strings"
)

// VTR is an ordered vector of trust request. Each value is either a bare
// credential trust level ("Cl.Cm") or a level of confidence joined to one
// ("P2.Cl.Cm").
type VTR []string

// BuildVTR joins each selected level of confidence to the credential trust
// level. With no levels the result is the credential trust level alone.
func BuildVTR(credentialTrust string, levels ...string) VTR {
	var v VTR
	for _, l := range levels {
		if strings.TrimSpace(l) == "" {
			continue
		}
		v = append(v, l+"."+credentialTrust)
	}
	if len(v) == 0 {
		v = VTR{credentialTrust}
	}
	return v
}

// String returns the JSON array encoding used for the vtr query parameter.
func (v VTR) String() string {
	if v == nil {
		v = VTR{}
	}
	b, _ := json.Marshal([]string(v))
	return string(b)
}
