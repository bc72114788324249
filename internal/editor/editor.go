// Package editor launches the user's preferred text editor.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// Editor runs an external editor on a file.
type Editor struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// New returns an editor attached to the given streams.
func New(stdin io.Reader, stdout, stderr io.Writer) *Editor {
	return &Editor{stdin: stdin, stdout: stdout, stderr: stderr}
}

// Open launches the editor on path and waits for it to exit.
// Uses $EDITOR, falling back to $VISUAL, then nano, then vi. The variable
// may carry arguments, as in EDITOR="code --wait".
func (e *Editor) Open(ctx context.Context, path string) error {
	argv := strings.Fields(detectEditor())
	if len(argv) == 0 {
		return errors.New("no editor configured")
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = e.stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// detectEditor returns the editor command to use based on environment variables
// and available binaries. Fallback chain: $EDITOR → $VISUAL → nano → vi
func detectEditor() string {
	if editor := strings.TrimSpace(os.Getenv("EDITOR")); editor != "" {
		return editor
	}
	if visual := strings.TrimSpace(os.Getenv("VISUAL")); visual != "" {
		return visual
	}
	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}
	return "vi"
}
