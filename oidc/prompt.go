// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"strings"
)

// Prompt is a string values that specifies whether the Authorization Server
// prompts the End-User for reauthentication and consent.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthRequest
type Prompt string

const (
	// Defined the Prompt values that specifies whether the Authorization Server
	// prompts the End-User for reauthentication and consent.
	//
	// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthRequest
	None          Prompt = "none"
	Login         Prompt = "login"
	Consent       Prompt = "consent"
	SelectAccount Prompt = "select_account"
	Create        Prompt = "create"
)

func (p Prompt) valid() bool {
	switch p {
	case None, Login, Consent, SelectAccount, Create:
		return true
	}
	return false
}

// ParsePrompts parses a space separated list of prompt values. A blank value
// yields no prompts. Unknown values, and "none" combined with any other value,
// return ErrInvalidPrompt.
func ParsePrompts(s string) ([]Prompt, error) {
	const op = "ParsePrompts"
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}
	prompts := make([]Prompt, 0, len(fields))
	for _, f := range fields {
		p := Prompt(f)
		if !p.valid() {
			return nil, fmt.Errorf("%s: unknown prompt value %q: %w", op, f, ErrInvalidPrompt)
		}
		prompts = append(prompts, p)
	}
	if err := validatePrompts(prompts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return prompts, nil
}

func validatePrompts(prompts []Prompt) error {
	for _, p := range prompts {
		if !p.valid() {
			return fmt.Errorf("unknown prompt value %q: %w", p, ErrInvalidPrompt)
		}
		if p == None && len(prompts) > 1 {
			return fmt.Errorf("prompt none cannot be combined with other values: %w", ErrInvalidPrompt)
		}
	}
	return nil
}

func promptString(prompts []Prompt) string {
	s := make([]string, 0, len(prompts))
	for _, p := range prompts {
		s = append(s, string(p))
	}
	return strings.Join(s, " ")
}
