package layer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kattouf/mise/internal/version"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestWritePreservesOtherTables(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mise.toml", `# project config
[settings]
experimental = true

[tools]
node = "20.1.0"
python = ["3.12", "3.11"]

# env vars
[env]
FOO = "bar"
`)

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Set("node", version.MustParse("22.0.0"))
	l.Tools.Set("go", version.MustParse("1.22.0"))

	outcome, err := Write(l, WriteOptions{})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Written {
		t.Errorf("Write() outcome = %v, want written", outcome)
	}

	want := `# project config
[settings]
experimental = true

[tools]
node = "22.0.0"
python = ["3.12", "3.11"]
go = "1.22.0"

# env vars
[env]
FOO = "bar"
`
	if got := readFile(t, path); got != want {
		t.Errorf("file content =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mise.toml")

	l := New(path, Project())
	l.Tools.Set("node", version.MustParse("20.1.0"))
	l.Tools.Set("npm:prettier", version.MustParse("latest"))
	l.Tools.Set("python", version.MustParse("3.12"), version.MustParse("3.11"))
	l.Tools.Set("weird", version.MustParse(`say "hi"\now`))

	if _, err := Write(l, WriteOptions{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.Tools.Equal(l.Tools) {
		t.Errorf("round trip mismatch: got %v, want %v", got.Tools.Names(), l.Tools.Names())
	}
}

func TestWriteAppendsSection(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mise.toml", "[env]\nFOO = \"bar\"")

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Set("node", version.MustParse("20"))

	if _, err := Write(l, WriteOptions{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "[env]\nFOO = \"bar\"\n\n[tools]\nnode = \"20\"\n"
	if got := readFile(t, path); got != want {
		t.Errorf("file content = %q, want %q", got, want)
	}
}

func TestWriteUnchanged(t *testing.T) {
	content := "[tools]\nnode = \"20.1.0\"\n"
	path := writeFile(t, t.TempDir(), "mise.toml", content)
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	outcome, err := Write(l, WriteOptions{})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Unchanged {
		t.Errorf("Write() outcome = %v, want unchanged", outcome)
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("file was rewritten")
	}
}

func TestWriteDeletesEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mise.toml", "[tools]\nnode = \"20\"\n")

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Delete("node")

	outcome, err := Write(l, WriteOptions{})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Deleted {
		t.Errorf("Write() outcome = %v, want deleted", outcome)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists (stat err = %v)", err)
	}
	if l.Exists() {
		t.Error("Exists() = true after delete")
	}
}

func TestWriteKeepEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mise.toml", "[tools]\nnode = \"20\"\n")

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Delete("node")

	outcome, err := Write(l, WriteOptions{KeepEmpty: true})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Written {
		t.Errorf("Write() outcome = %v, want written", outcome)
	}
	if got := readFile(t, path); got != "" {
		t.Errorf("file content = %q, want empty", got)
	}
}

func TestWriteRemovesSectionKeepsRest(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mise.toml", "[tools]\nnode = \"20\"\n\n[env]\nFOO = \"bar\"\n")

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Delete("node")

	outcome, err := Write(l, WriteOptions{})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Written {
		t.Errorf("Write() outcome = %v, want written", outcome)
	}
	if got, want := readFile(t, path), "\n[env]\nFOO = \"bar\"\n"; got != want {
		t.Errorf("file content = %q, want %q", got, want)
	}
}

func TestWriteKeepsCommentOnlyRemainder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mise.toml", "# pinned by hand\n[tools]\nnode = \"20\"\n")

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Delete("node")

	outcome, err := Write(l, WriteOptions{})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Written {
		t.Errorf("Write() outcome = %v, want written", outcome)
	}
	if got, want := readFile(t, path), "# pinned by hand\n"; got != want {
		t.Errorf("file content = %q, want %q", got, want)
	}
}

func TestWriteEmptyMissingFileIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mise.toml")

	outcome, err := Write(New(path, Project()), WriteOptions{})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if outcome != Unchanged {
		t.Errorf("Write() outcome = %v, want unchanged", outcome)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Write() created a file for an empty layer")
	}
}

func TestWriteSkipsHeadersInsideMultilineStrings(t *testing.T) {
	content := "[settings]\nnote = \"\"\"\n[tools]\n\"\"\"\n\n[tools]\nnode = \"20\"\n"
	path := writeFile(t, t.TempDir(), "mise.toml", content)

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Set("node", version.MustParse("22"))
	if _, err := Write(l, WriteOptions{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := strings.Replace(content, `node = "20"`, `node = "22"`, 1)
	if got := readFile(t, path); got != want {
		t.Errorf("file content = %q, want %q", got, want)
	}
}

func TestWriteFindsHeaderAfterQuotesInCommentsAndStrings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "triple quote in comment",
			content: "# docs use \"\"\" strings\n[settings]\na = 1\n\n[tools]\nnode = \"20.9.0\"\n",
		},
		{
			name:    "triple quote in literal string",
			content: "[settings]\nquote = '\"\"\"'\n\n[tools]\nnode = \"20.9.0\"\n",
		},
		{
			name:    "header text in multi-line literal with basic delimiter",
			content: "[settings]\nnote = '''\nsee \"\"\"\n[tools]\nfake = \"1\"\n'''\n\n[tools]\nnode = \"20.9.0\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "mise.toml", tt.content)

			l, err := Read(path, Project())
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if names := l.Tools.Names(); len(names) != 1 || names[0] != "node" {
				t.Fatalf("Read() tools = %v, want [node]", names)
			}
			l.Tools.Set("node", version.MustParse("22.0.0"))
			if _, err := Write(l, WriteOptions{}); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			want := strings.Replace(tt.content, `node = "20.9.0"`, `node = "22.0.0"`, 1)
			if got := readFile(t, path); got != want {
				t.Errorf("file content = %q, want %q", got, want)
			}
		})
	}
}

func TestWriteRejectsInlineTools(t *testing.T) {
	content := "tools = { node = \"20\" }\n"
	path := writeFile(t, t.TempDir(), "mise.toml", content)

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Set("go", version.MustParse("1.22"))

	if _, err := Write(l, WriteOptions{}); !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("Write() error = %v, want ErrUnsupportedLayout", err)
	}
	if got := readFile(t, path); got != content {
		t.Errorf("file modified: %q", got)
	}
}

func TestWriteRefusesMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mise.toml")
	l := New(path, Project())
	l.Tools.Set("node", version.MustParse("20"))

	content := "[tools\nnode = \"18\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Write(l, WriteOptions{}); !errors.Is(err, ErrParse) {
		t.Fatalf("Write() error = %v, want ErrParse", err)
	}
	if got := readFile(t, path); got != content {
		t.Errorf("file modified: %q", got)
	}
}

func TestWriteCommitFailureLeavesFileIntact(t *testing.T) {
	content := "[tools]\nnode = \"20\"\n"
	path := writeFile(t, t.TempDir(), "mise.toml", content)

	orig := commit
	t.Cleanup(func() { commit = orig })
	commit = func(string, []byte, os.FileMode) error {
		return errors.New("disk full")
	}

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Set("node", version.MustParse("22"))

	_, err = Write(l, WriteOptions{})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Write() error = %v, want ErrIO", err)
	}
	var we *WriteError
	if !errors.As(err, &we) || we.Path != path {
		t.Errorf("Write() error = %#v, want *WriteError for %s", err, path)
	}
	if got := readFile(t, path); got != content {
		t.Errorf("file modified: %q", got)
	}
}

func TestConcurrentReadersNeverSeePartialFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename over a file held open by a reader fails on windows")
	}
	path := writeFile(t, t.TempDir(), "mise.toml", "[env]\nFOO = \"bar\"\n\n[tools]\nnode = \"1.0.0\"\n")

	const writers, writes = 4, 200
	var (
		wg   sync.WaitGroup
		done atomic.Bool
		errs = make(chan error, writers+1)
	)

	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range writes {
				l := New(path, Project())
				l.Tools.Set("node", version.MustParse(fmt.Sprintf("%d.%d.0", w+1, i)))
				if _, err := Write(l, WriteOptions{}); err != nil {
					errs <- fmt.Errorf("writer %d: %w", w, err)
					return
				}
			}
		}()
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for !done.Load() {
			l, err := Read(path, Project())
			if err != nil {
				errs <- fmt.Errorf("reader: %w", err)
				return
			}
			if _, ok := l.Tools.Get("node"); !ok || l.Tools.Len() != 1 {
				errs <- fmt.Errorf("reader saw tools %v", l.Tools.Names())
				return
			}
		}
	}()

	wg.Wait()
	done.Store(true)
	<-readerDone
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if got := readFile(t, path); !strings.HasPrefix(got, "[env]\nFOO = \"bar\"\n\n[tools]\nnode = ") {
		t.Errorf("final file = %q", got)
	}
}

func TestWriteKeepsFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not tracked on Windows")
	}
	path := writeFile(t, t.TempDir(), "mise.toml", "[tools]\nnode = \"20\"\n")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := Read(path, Project())
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	l.Tools.Set("node", version.MustParse("22"))
	if _, err := Write(l, WriteOptions{}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
}
