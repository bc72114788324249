package configurator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicyType(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want PolicyType
	}{
		{"USER-INCLUDE", PolicyUserInclude},
		{"user-exclude", PolicyUserExclude},
		{" MANAGED-ONLY ", PolicyManagedOnly},
	} {
		got, err := ParsePolicyType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, mustRoundTrip(t, got))
	}

	_, err := ParsePolicyType("EVERYTHING")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func mustRoundTrip(t *testing.T, p PolicyType) PolicyType {
	t.Helper()
	got, err := ParsePolicyType(p.String())
	require.NoError(t, err)
	return got
}

func TestParseSitePolicy(t *testing.T) {
	p, err := ParseSitePolicy("USER-INCLUDE", "plugins/a_1.0/plugin.xml, ,plugins/b.jar")
	require.NoError(t, err)
	assert.Equal(t, PolicyUserInclude, p.Type())
	assert.Equal(t, []string{"plugins/a_1.0/plugin.xml", "plugins/b.jar"}, p.List())
	assert.Equal(t, "plugins/a_1.0/plugin.xml,plugins/b.jar", p.ListString())

	p, err = ParseSitePolicy("nope", "x")
	assert.Error(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestSitePolicy_Apply(t *testing.T) {
	detected := []string{
		"plugins/org.a.core_1.0.0/plugin.xml",
		"plugins/org.b_2.0.0/fragment.xml",
		"plugins/org.c_1.0.0.jar",
	}
	managed := map[string]bool{"org.a.core": true}

	tests := []struct {
		name   string
		policy SitePolicy
		want   []string
	}{
		{
			name:   "exclude nothing",
			policy: DefaultPolicy(),
			want:   detected,
		},
		{
			name:   "exclude listed",
			policy: NewSitePolicy(PolicyUserExclude, "plugins/org.b_2.0.0/fragment.xml"),
			want:   []string{detected[0], detected[2]},
		},
		{
			name:   "include list as is",
			policy: NewSitePolicy(PolicyUserInclude, "plugins/elsewhere/plugin.xml"),
			want:   []string{"plugins/elsewhere/plugin.xml"},
		},
		{
			name:   "managed plus listed",
			policy: NewSitePolicy(PolicyManagedOnly, "plugins/org.c_1.0.0.jar"),
			want:   []string{detected[0], detected[2]},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.apply(detected, managed))
		})
	}
}

func TestPluginIDFromPath(t *testing.T) {
	assert.Equal(t, "org.a.core", pluginIDFromPath("plugins/org.a.core_1.0.0/plugin.xml"))
	assert.Equal(t, "org.c", pluginIDFromPath("plugins/org.c_1.0.0.jar"))
	assert.Equal(t, "org.snake_case", pluginIDFromPath("plugins/org.snake_case_3.1/plugin.xml"))
	assert.Equal(t, "unversioned", pluginIDFromPath("plugins/unversioned/plugin.xml"))
}
