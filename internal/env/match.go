package env

import "strings"

// Matches reports whether a feature declaring the given os, ws, arch and nl
// filters applies to e. Empty filters are unconstrained. Each filter is a
// comma-separated list of alternatives compared case-insensitively, "*"
// matches anything, and the nl filter also accepts a prefix match in either
// direction ("en" matches "en_US" and "en_US" matches "en").
func (e Environment) Matches(osFilter, wsFilter, archFilter, nlFilter string) bool {
	if osFilter != "" && !matchesAny(osFilter, e.OS) {
		return false
	}
	if wsFilter != "" && !matchesAny(wsFilter, e.WS) {
		return false
	}
	if archFilter != "" && !matchesAny(archFilter, e.Arch) {
		return false
	}
	if nlFilter != "" && !matchesLocale(nlFilter, e.NL) {
		return false
	}
	return true
}

func matchesAny(candidates, actual string) bool {
	if actual == "" {
		return false
	}
	for _, c := range strings.Split(candidates, ",") {
		c = strings.TrimSpace(c)
		if c == "*" || strings.EqualFold(c, actual) {
			return true
		}
	}
	return false
}

func matchesLocale(candidates, locale string) bool {
	if locale == "" {
		return false
	}
	locale = strings.ToUpper(locale)
	for _, c := range strings.Split(candidates, ",") {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if c == "*" || strings.HasPrefix(locale, c) || strings.HasPrefix(c, locale) {
			return true
		}
	}
	return false
}
