package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/martinemde/minichain/agentloop"
	"github.com/spf13/afero"
)

const defaultReadLimit = 2000

// Files exposes read-only access to one directory tree. Paths given by the
// model are relative to the root and cannot escape it.
type Files struct {
	fsys fs.FS
}

// OpenFiles roots a Files toolset at dir on the local disk.
func OpenFiles(dir string) (*Files, error) {
	osfs := afero.NewOsFs()
	ok, err := afero.DirExists(osfs, dir)
	if err != nil {
		return nil, fmt.Errorf("open tool root: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("open tool root: %s is not a directory", dir)
	}
	return NewFiles(afero.NewBasePathFs(osfs, dir)), nil
}

// NewFiles builds a toolset over fsys, whose root is the tool root.
// Writes are refused whatever fsys allows.
func NewFiles(fsys afero.Fs) *Files {
	return &Files{fsys: afero.NewIOFS(afero.NewReadOnlyFs(fsys))}
}

// Tools returns read_file, list_directory and glob bound to f.
func (f *Files) Tools() []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewTool("read_file", "Read a text file. Returns line-numbered content.", f.readFile),
		agentloop.NewTool("list_directory", "List the entries of a directory.", f.listDirectory),
		agentloop.NewTool("glob", "Find files matching a glob pattern such as src/**/*.go.", f.glob),
	}
}

// Register adds every tool of f to registry.
func (f *Files) Register(registry *agentloop.ToolRegistry) {
	for _, t := range f.Tools() {
		registry.Register("", t)
	}
}

// clean turns a model-supplied path into an fs.FS path. Leading slashes
// and ".." segments resolve against the root.
func clean(p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if p == "" {
		p = "."
	}
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("invalid path %q", p)
	}
	return p, nil
}

type ReadFileInput struct {
	Path   string `json:"path" jsonschema:"description=File path relative to the root"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-based line number to start reading from"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read. Default: 2000."`
}

func (f *Files) readFile(_ context.Context, in ReadFileInput) (string, error) {
	name, err := clean(in.Path)
	if err != nil {
		return "", err
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	first := max(in.Offset, 1) - 1
	if first >= len(lines) {
		return "", nil
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	lines = lines[first:min(len(lines), first+limit)]

	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%d | %s\n", first+i+1, line)
	}
	return sb.String(), nil
}

type ListDirectoryInput struct {
	Path string `json:"path,omitempty" jsonschema:"description=Directory relative to the root. Default: the root."`
}

func (f *Files) listDirectory(_ context.Context, in ListDirectoryInput) (string, error) {
	name, err := clean(in.Path)
	if err != nil {
		return "", err
	}
	entries, err := fs.ReadDir(f.fsys, name)
	if err != nil {
		return "", fmt.Errorf("list_directory: %w", err)
	}
	if len(entries) == 0 {
		return "Directory is empty.", nil
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(&sb, "%s (%d bytes)\n", entry.Name(), size)
	}
	return sb.String(), nil
}

type GlobInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Glob pattern relative to the root. ** matches any number of directories."`
}

func (f *Files) glob(_ context.Context, in GlobInput) (string, error) {
	if in.Pattern == "" {
		return "", errors.New("pattern is required")
	}
	pattern, err := clean(in.Pattern)
	if err != nil {
		return "", err
	}
	matches, err := doublestar.Glob(f.fsys, pattern)
	if err != nil {
		return "", fmt.Errorf("glob: %w", err)
	}
	if len(matches) == 0 {
		return "No files matched the pattern.", nil
	}
	sort.Strings(matches)
	return strings.Join(matches, "\n"), nil
}
