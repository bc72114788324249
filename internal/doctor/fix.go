package doctor

// Fixer is an optional interface that checks can implement to support
// auto-remediation with doctor --fix.
type Fixer interface {
	// CanFix returns true if this check has fixable issues.
	// Must be called after Run.
	CanFix() bool

	// Fix attempts to remediate the issues found by Run.
	Fix() []FixResult
}

// FixResult describes the outcome of an attempted fix operation.
type FixResult struct {
	// Path is the file or directory that was targeted for fixing.
	Path string `json:"path" yaml:"path" toml:"path"`

	// Fixed indicates whether the fix was successfully applied.
	Fixed bool `json:"fixed" yaml:"fixed" toml:"fixed"`

	// Description explains what was fixed or why it couldn't be fixed.
	Description string `json:"description" yaml:"description" toml:"description"`

	// Error contains the error if the fix failed.
	Error error `json:"-" yaml:"-" toml:"-"`
}
