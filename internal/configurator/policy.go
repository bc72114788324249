package configurator

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidPolicy indicates an unknown site policy name.
var ErrInvalidPolicy = errors.New("invalid site policy")

// PolicyType selects how a site's policy list is applied to the plug-ins
// found on the site.
type PolicyType int

const (
	// PolicyUserInclude configures exactly the plug-ins in the list.
	PolicyUserInclude PolicyType = iota
	// PolicyUserExclude configures every detected plug-in except those in
	// the list.
	PolicyUserExclude
	// PolicyManagedOnly configures the plug-ins contributed by the site's
	// features plus those named in the list.
	PolicyManagedOnly
)

var policyNames = [...]string{
	PolicyUserInclude: "USER-INCLUDE",
	PolicyUserExclude: "USER-EXCLUDE",
	PolicyManagedOnly: "MANAGED-ONLY",
}

func (t PolicyType) String() string {
	if t < 0 || int(t) >= len(policyNames) {
		return "UNKNOWN"
	}
	return policyNames[t]
}

// ParsePolicyType maps a persisted policy name to its type.
func ParsePolicyType(s string) (PolicyType, error) {
	for i, name := range policyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return PolicyType(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidPolicy, "%q", s)
}

// SitePolicy pairs a policy type with its list of plug-in entries.
// SitePolicy values are immutable.
type SitePolicy struct {
	typ  PolicyType
	list []string
}

// NewSitePolicy returns a policy of type t. Blank list entries are dropped.
func NewSitePolicy(t PolicyType, list ...string) SitePolicy {
	p := SitePolicy{typ: t}
	for _, e := range list {
		if e = strings.TrimSpace(e); e != "" {
			p.list = append(p.list, e)
		}
	}
	return p
}

// DefaultPolicy is USER-EXCLUDE with an empty list: every detected
// plug-in is configured.
func DefaultPolicy() SitePolicy {
	return SitePolicy{typ: PolicyUserExclude}
}

// ParseSitePolicy builds a policy from the persisted policy name and
// comma-separated list.
func ParseSitePolicy(name, list string) (SitePolicy, error) {
	t, err := ParsePolicyType(name)
	if err != nil {
		return DefaultPolicy(), err
	}
	return NewSitePolicy(t, strings.Split(list, ",")...), nil
}

// Type returns the policy type.
func (p SitePolicy) Type() PolicyType { return p.typ }

// List returns a copy of the policy list.
func (p SitePolicy) List() []string { return slices.Clone(p.list) }

// ListString returns the list in its persisted, comma-separated form.
func (p SitePolicy) ListString() string { return strings.Join(p.list, ",") }

func (p SitePolicy) String() string {
	if len(p.list) == 0 {
		return p.typ.String()
	}
	return p.typ.String() + "[" + p.ListString() + "]"
}

// apply selects the configured plug-ins out of the detected ones. managed
// holds the plug-in identifiers of the site's features.
func (p SitePolicy) apply(detected []string, managed map[string]bool) []string {
	listed := make(map[string]bool, len(p.list))
	for _, e := range p.list {
		listed[e] = true
	}

	switch p.typ {
	case PolicyUserInclude:
		return slices.Clone(p.list)
	case PolicyManagedOnly:
		var out []string
		for _, d := range detected {
			if managed[pluginIDFromPath(d)] || listed[d] {
				out = append(out, d)
			}
		}
		return out
	default:
		var out []string
		for _, d := range detected {
			if !listed[d] {
				out = append(out, d)
			}
		}
		return out
	}
}

// pluginIDFromPath extracts the plug-in id from a detected entry such as
// plugins/org.example.core_1.2.0/plugin.xml or plugins/org.example_1.0.jar.
func pluginIDFromPath(p string) string {
	rest := strings.TrimPrefix(p, PluginsDir+"/")
	name, _, _ := strings.Cut(rest, "/")
	name = strings.TrimSuffix(name, ".jar")
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '_' && i+1 < len(name) && name[i+1] >= '0' && name[i+1] <= '9' {
			return name[:i]
		}
	}
	return name
}
