// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// CodeEmailDomainNotAllowed is returned by Register when the email's domain
// matches none of Policy.AllowedEmailDomains.
const CodeEmailDomainNotAllowed = "AUTH_EMAIL_DOMAIN_NOT_ALLOWED"

// DomainMatcher decides which email domains may register.
//
// Patterns use gobwas/glob with '.' as the segment separator:
//   - '*' matches a single label ("*.example.com" matches "eu.example.com")
//   - '**' matches any number of labels ("**.example.com" also matches "a.b.example.com")
//
// A nil or empty DomainMatcher allows every domain.
type DomainMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewDomainMatcher compiles patterns. Patterns are matched case-insensitively.
func NewDomainMatcher(patterns []string) (*DomainMatcher, error) {
	m := &DomainMatcher{}
	for i, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			return nil, oops.Code("AUTH_INVALID_POLICY").
				With("index", i).
				Errorf("email domain pattern %d is empty", i)
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, oops.Code("AUTH_INVALID_POLICY").
				With("pattern", pattern).
				Wrapf(err, "email domain pattern %d", i)
		}
		m.patterns = append(m.patterns, pattern)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Allows reports whether email's domain matches a pattern.
func (m *DomainMatcher) Allows(email string) bool {
	if m == nil || len(m.globs) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, g := range m.globs {
		if g.Match(domain) {
			return true
		}
	}
	return false
}

// Patterns returns the normalized patterns.
func (m *DomainMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}
