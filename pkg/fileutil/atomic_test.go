package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

func TestAtomicWriteFile(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		perm    os.FileMode
		wantErr bool
	}{
		{
			name: "successful write",
			data: []byte("<config/>\n"),
			perm: 0644,
		},
		{
			name: "empty data",
			data: []byte{},
			perm: 0644,
		},
		{
			name: "private file",
			data: []byte{0x00, 0x01, 0x02, 0xFF},
			perm: 0600,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "platform.xml")
			fs := afero.NewOsFs()

			err := AtomicWriteFile(fs, path, tt.data, tt.perm)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AtomicWriteFile() error = %v, wantErr %v", err, tt.wantErr)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading file: %v", err)
			}
			if string(got) != string(tt.data) {
				t.Errorf("content = %q, want %q", got, tt.data)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stating file: %v", err)
			}
			if gotPerm := info.Mode().Perm(); gotPerm != tt.perm {
				t.Errorf("permissions = %o, want %o", gotPerm, tt.perm)
			}
		})
	}
}

func TestAtomicWriteFile_DirectoryNotExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("/missing", "subdir", "file.txt")

	// MemMapFs creates parents implicitly, so use a read-only view.
	err := AtomicWriteFile(afero.NewReadOnlyFs(fs), path, []byte("data"), 0600)
	if err == nil {
		t.Error("AtomicWriteFile() expected error for read-only file system")
	}
}

func TestAtomicWriteFile_OverwriteExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/cfg/platform.xml"

	if err := afero.WriteFile(fs, path, []byte("original\n"), 0600); err != nil {
		t.Fatalf("creating original file: %v", err)
	}

	if err := AtomicWriteFile(fs, path, []byte("new\n"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}

	got, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	if string(got) != "new\n" {
		t.Errorf("content = %q, want %q", got, "new\n")
	}
}

func TestAtomicWrite_NoTempFileLeftOnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/cfg", 0755); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := AtomicWrite(fs, "/cfg/platform.xml", 0644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("AtomicWrite() error = %v, want %v", err, boom)
	}

	entries, err := afero.ReadDir(fs, "/cfg")
	if err != nil {
		t.Fatalf("reading directory: %v", err)
	}
	for _, entry := range entries {
		t.Errorf("file left behind: %s", entry.Name())
	}
}

func TestAtomicWriteYAML(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantYAML string
		wantErr  bool
	}{
		{
			name:     "simple struct",
			value:    struct{ Name string }{Name: "test"},
			wantYAML: "name: test\n",
		},
		{
			name:     "map",
			value:    map[string]int{"retention": 5},
			wantYAML: "retention: 5\n",
		},
		{
			name:    "unmarshalable func",
			value:   func() {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			path := "/cfg/config.yaml"

			err := AtomicWriteYAML(fs, path, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AtomicWriteYAML() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				if exists, _ := afero.Exists(fs, path); exists {
					t.Error("file should not exist after marshal error")
				}
				return
			}

			got, err := afero.ReadFile(fs, path)
			if err != nil {
				t.Fatalf("reading file: %v", err)
			}
			if string(got) != tt.wantYAML {
				t.Errorf("content = %q, want %q", got, tt.wantYAML)
			}
			if !strings.HasSuffix(string(got), "\n") {
				t.Error("YAML output should have trailing newline")
			}
		})
	}
}
