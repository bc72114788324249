// Package errors holds the cross-package error conventions of platconf.
//
// Engine packages declare their own sentinel errors next to the code that
// returns them and wrap causes with github.com/cockroachdb/errors. This
// package holds the few sentinels shared by several packages and the
// [ExitError] type the CLI uses to turn a failure into an exit code and an
// optional suggestion:
//
//	err := perrors.NewUserError(perrors.ErrNoConfiguration, "Run: platconf init")
//	var exitErr *perrors.ExitError
//	if errors.As(err, &exitErr) {
//	    os.Exit(exitErr.Code)
//	}
//
// Exit codes follow Unix conventions: ExitSuccess (0), ExitUser (1) for bad
// input or configuration, ExitSystem (2) for I/O and environment failures.
package errors
