package config

import (
	"strings"

	"golang.org/x/mod/semver"
)

// canonical adds the "v" prefix x/mod/semver expects.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// Upgrade records current as the last seen version when the stored one is
// older or missing. It reports whether an upgrade happened, in which case
// the caller shows what changed.
func (c *ContentConfig) Upgrade(current string) bool {
	cur := canonical(current)
	if !semver.IsValid(cur) {
		return false
	}
	stored := canonical(c.Version)
	if semver.IsValid(stored) && semver.Compare(stored, cur) >= 0 {
		return false
	}
	c.Version = strings.TrimPrefix(cur, "v")
	return true
}
