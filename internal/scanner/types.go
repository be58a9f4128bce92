// Package scanner walks a project tree and streams the files and
// directories the indexing pipeline should track. It honors exclusion
// patterns, .gitignore rules, and sensitive file patterns, and detects each
// file's type from its name. Oversized files are not filtered here; the
// decision engine excludes them from content indexes while metadata indexes
// still cover them.
package scanner

import (
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes one discovered file or directory.
type FileInfo struct {
	Path     string // relative to the scanned root
	AbsPath  string
	Size     int64
	ModTime  time.Time
	IsDir    bool
	FileType string // detected language or file kind, "" when unknown
}

// Options configures a scan.
type Options struct {
	// RootDir is the tree root to scan. Empty means the current directory.
	RootDir string

	// ExcludePatterns are additional exclusions on top of the defaults.
	ExcludePatterns []string

	// RespectGitignore enables .gitignore parsing, including nested files.
	RespectGitignore bool

	// FollowSymlinks includes symlinked files. Off by default.
	FollowSymlinks bool
}

// Result is one item streamed from the scan channel.
type Result struct {
	File  *FileInfo
	Error error
}

// fileTypeByExt maps extensions and well-known file names to a type label.
var fileTypeByExt = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".kt":   "kotlin",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".cc":   "cpp",
	".cs":   "csharp",
	".php":  "php",
	".swift": "swift",
	".scala": "scala",
	".ex":   "elixir",
	".exs":  "elixir",
	".hs":   "haskell",
	".lua":  "lua",
	".sql":  "sql",

	".sh":   "shell",
	".bash": "shell",
	".zsh":  "shell",

	".html": "html",
	".htm":  "html",
	".css":  "css",
	".scss": "scss",

	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".ini":   "ini",
	".proto": "protobuf",

	".md":       "markdown",
	".mdx":      "markdown",
	".markdown": "markdown",
	".rst":      "rst",
	".txt":      "text",

	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",
}

// DetectFileType returns the type label for a path, or "" when unknown.
// Well-known bare file names (Dockerfile, Makefile) win over extensions.
func DetectFileType(path string) string {
	base := filepath.Base(path)
	if t, ok := fileTypeByExt[base]; ok {
		return t
	}
	if t, ok := fileTypeByExt[strings.ToLower(filepath.Ext(base))]; ok {
		return t
	}
	return ""
}
