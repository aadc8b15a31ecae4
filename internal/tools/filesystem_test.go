package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRoots struct {
	sandbox string
	shared  string
}

func (f fakeRoots) SandboxRoot(string) (string, error) { return f.sandbox, nil }
func (f fakeRoots) SharedRoot() string                 { return f.shared }

func TestFileSystemTool_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: dir, shared: dir}}

	content, isError, _ := tool.Run(context.Background(), "a1", map[string]string{
		"action": "write", "scope": "private", "path": "notes.md", "content": "hello",
	})
	if isError {
		t.Fatalf("write errored: %s", content)
	}

	content, isError, _ = tool.Run(context.Background(), "a1", map[string]string{
		"action": "read", "scope": "private", "path": "notes.md",
	})
	if isError || content != "hello" {
		t.Fatalf("read = %q, isError=%v, want hello", content, isError)
	}
}

func TestFileSystemTool_AppendAccumulates(t *testing.T) {
	dir := t.TempDir()
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: dir, shared: dir}}

	tool.Run(context.Background(), "a1", map[string]string{"action": "append", "path": "log.txt", "content": "one "})
	tool.Run(context.Background(), "a1", map[string]string{"action": "append", "path": "log.txt", "content": "two"})

	data, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "one two" {
		t.Errorf("content = %q, want %q", string(data), "one two")
	}
}

func TestFileSystemTool_DeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: dir, shared: dir}}
	path := filepath.Join(dir, "gone.txt")
	os.WriteFile(path, []byte("x"), 0o644)

	content, isError, _ := tool.Run(context.Background(), "a1", map[string]string{"action": "delete", "path": "gone.txt"})
	if isError {
		t.Fatalf("delete errored: %s", content)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}
}

func TestFileSystemTool_ListReportsEntries(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub"), 0o755)
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: dir, shared: dir}}

	content, isError, _ := tool.Run(context.Background(), "a1", map[string]string{"action": "list", "path": "."})
	if isError {
		t.Fatalf("list errored: %s", content)
	}
	if !strings.Contains(content, "a.txt") || !strings.Contains(content, "sub/") {
		t.Errorf("list output %q missing expected entries", content)
	}
}

func TestFileSystemTool_PathEscapeRejected(t *testing.T) {
	dir := t.TempDir()
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: dir, shared: dir}}

	content, isError, _ := tool.Run(context.Background(), "a1", map[string]string{
		"action": "read", "scope": "private", "path": "../../etc/passwd",
	})
	if !isError {
		t.Fatalf("expected path escape to be rejected, got %q", content)
	}
}

func TestFileSystemTool_FindReplaceIsBoundedAndIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	os.WriteFile(path, []byte("foo foo"), 0o644)
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: dir, shared: dir}}

	args := map[string]string{"action": "find_replace", "path": "doc.txt", "find": "foo", "replace": "bar", "count": "1"}

	content, isError, _ := tool.Run(context.Background(), "a1", args)
	if isError || content != "replaced=1" {
		t.Fatalf("first call = %q, isError=%v, want replaced=1", content, isError)
	}

	content, isError, _ = tool.Run(context.Background(), "a1", args)
	if isError || content != "replaced=1" {
		t.Fatalf("second call = %q, isError=%v, want replaced=1", content, isError)
	}

	content, isError, _ = tool.Run(context.Background(), "a1", args)
	if isError || content != "replaced=0" {
		t.Fatalf("third call = %q, isError=%v, want replaced=0", content, isError)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "bar bar" {
		t.Errorf("final content = %q, want %q", string(data), "bar bar")
	}
}

func TestFileSystemTool_SharedScopeUsesSharedRoot(t *testing.T) {
	sandbox, shared := t.TempDir(), t.TempDir()
	tool := &FileSystemTool{Roots: fakeRoots{sandbox: sandbox, shared: shared}}

	tool.Run(context.Background(), "a1", map[string]string{"action": "write", "scope": "shared", "path": "report.md", "content": "x"})

	if _, err := os.Stat(filepath.Join(shared, "report.md")); err != nil {
		t.Errorf("expected report.md under shared root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sandbox, "report.md")); !os.IsNotExist(err) {
		t.Error("did not expect report.md under sandbox root")
	}
}
