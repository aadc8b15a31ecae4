package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SandboxRoots resolves the two filesystem roots a file_system call may
// target: the caller's private sandbox and the session's shared workspace
// (§4.5, §6: "Sandbox", "Shared workspace"). Implemented by
// internal/multiagent's AgentLifecycle.
type SandboxRoots interface {
	// SandboxRoot returns the agent's private sandbox directory.
	SandboxRoot(agentID string) (string, error)
	// SharedRoot returns the session's shared workspace directory.
	SharedRoot() string
}

// FileSystemTool implements the file_system tool: read, write, append,
// list, delete, find_replace, each confined to either the caller's private
// sandbox or the session's shared workspace depending on scope (§4.5).
type FileSystemTool struct {
	Roots SandboxRoots
}

func (t *FileSystemTool) Name() string { return "file_system" }

func (t *FileSystemTool) Run(_ context.Context, callerID string, args map[string]string) (string, bool, []string) {
	if err := validateArgs(fileSystemSchema, t.Name(), args); err != nil {
		return toolError(err)
	}

	root, err := t.scopeRoot(callerID, args["scope"])
	if err != nil {
		return toolError(err)
	}
	resolver := pathResolver{root: root}

	path := firstNonEmpty(args["path"], args["filename"])
	switch action := args["action"]; action {
	case "read":
		return t.read(resolver, path)
	case "write":
		return t.write(resolver, path, args["content"])
	case "append":
		return t.append(resolver, path, args["content"])
	case "list":
		return t.list(resolver, path)
	case "delete":
		return t.delete(resolver, path)
	case "find_replace":
		return t.findReplace(resolver, path, args["find"], args["replace"], args["count"])
	default:
		return toolError(fmt.Errorf("unknown file_system action %q", action))
	}
}

func (t *FileSystemTool) scopeRoot(callerID, scope string) (string, error) {
	switch scope {
	case "", "private":
		return t.Roots.SandboxRoot(callerID)
	case "shared":
		return t.Roots.SharedRoot(), nil
	default:
		return "", fmt.Errorf("unknown scope %q", scope)
	}
}

func (t *FileSystemTool) read(r pathResolver, path string) (string, bool, []string) {
	abs, err := r.resolve(path)
	if err != nil {
		return toolError(err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return toolError(fmt.Errorf("read %s: %w", path, err))
	}
	return string(data), false, nil
}

func (t *FileSystemTool) write(r pathResolver, path, content string) (string, bool, []string) {
	abs, err := r.resolve(path)
	if err != nil {
		return toolError(err)
	}
	if err := atomicWrite(abs, []byte(content)); err != nil {
		return toolError(fmt.Errorf("write %s: %w", path, err))
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), false, nil
}

func (t *FileSystemTool) append(r pathResolver, path, content string) (string, bool, []string) {
	abs, err := r.resolve(path)
	if err != nil {
		return toolError(err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return toolError(fmt.Errorf("append %s: %w", path, err))
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return toolError(fmt.Errorf("append %s: %w", path, err))
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return toolError(fmt.Errorf("append %s: %w", path, err))
	}
	return fmt.Sprintf("appended %d bytes to %s", len(content), path), false, nil
}

func (t *FileSystemTool) list(r pathResolver, path string) (string, bool, []string) {
	dir := path
	if dir == "" {
		dir = "."
	}
	abs, err := r.resolve(dir)
	if err != nil {
		return toolError(err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return toolError(fmt.Errorf("list %s: %w", path, err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return strings.Join(names, "\n"), false, nil
}

func (t *FileSystemTool) delete(r pathResolver, path string) (string, bool, []string) {
	abs, err := r.resolve(path)
	if err != nil {
		return toolError(err)
	}
	if err := os.Remove(abs); err != nil {
		return toolError(fmt.Errorf("delete %s: %w", path, err))
	}
	return fmt.Sprintf("deleted %s", path), false, nil
}

// findReplace performs at most count replacements (default: all), and
// reports the number made. Repeating the same call against the result is
// idempotent: the number of remaining matches strictly decreases until the
// reported count hits zero (§4.13 S5), since each match consumed is no
// longer present to match again.
func (t *FileSystemTool) findReplace(r pathResolver, path, find, replace, countStr string) (string, bool, []string) {
	if find == "" {
		return toolError(fmt.Errorf("find is required"))
	}
	abs, err := r.resolve(path)
	if err != nil {
		return toolError(err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return toolError(fmt.Errorf("find_replace %s: %w", path, err))
	}

	limit := -1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return toolError(fmt.Errorf("count must be an integer: %w", err))
		}
		limit = n
	}

	replaced := strings.Count(string(data), find)
	if limit >= 0 && replaced > limit {
		replaced = limit
	}
	updated := strings.Replace(string(data), find, replace, limit)

	if replaced > 0 {
		if err := atomicWrite(abs, []byte(updated)); err != nil {
			return toolError(fmt.Errorf("find_replace %s: %w", path, err))
		}
	}
	return fmt.Sprintf("replaced=%d", replaced), false, nil
}

// atomicWrite writes to a temp file in the same directory then renames over
// the destination, so readers never observe a partial write.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func toolError(err error) (string, bool, []string) {
	return fmt.Sprintf("ERROR: %s", err), true, nil
}
