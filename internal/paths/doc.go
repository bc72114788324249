// Package paths resolves the default locations platconf works with: its
// own settings under the XDG config home, and the conventional layout of
// an install location.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg, so settings live in
// ~/.config/platconf on Linux, ~/Library/Application Support/platconf on
// macOS and %LOCALAPPDATA%\platconf on Windows.
//
// # Install Layout
//
// An install location follows this layout:
//
//	<install>/
//	├── configuration/
//	│   └── platform.xml
//	├── features/
//	├── plugins/
//	└── links/
//	    └── *.link
package paths
