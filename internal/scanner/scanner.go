package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scandex-dev/scandex/internal/gitignore"
)

// gitignoreCacheSize bounds the number of cached matchers so long-running
// watch sessions do not grow without limit.
const gitignoreCacheSize = 1000

// resultBuffer is the scan channel depth.
const resultBuffer = 256

// Scanner discovers trackable files and directories under a tree root.
type Scanner struct {
	cacheMu        sync.RWMutex
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
}

// New creates a scanner.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// Scan walks the tree and streams every trackable entry. Directories are
// emitted before their contents. The channel closes when the walk finishes
// or ctx is canceled; a walk failure is delivered as the final Result.
func (s *Scanner) Scan(ctx context.Context, opts Options) (<-chan Result, error) {
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scan root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root is not a directory: %s", absRoot)
	}

	results := make(chan Result, resultBuffer)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, opts, results)
	}()
	return results, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, opts Options, results chan<- Result) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.excludeDir(relPath, absRoot, opts) {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			return emit(ctx, results, &FileInfo{
				Path:    relPath,
				AbsPath: path,
				ModTime: info.ModTime(),
				IsDir:   true,
			})
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}
		if s.excludeFile(relPath, absRoot, opts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if isBinary(path) {
			return nil
		}

		return emit(ctx, results, &FileInfo{
			Path:     relPath,
			AbsPath:  path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			FileType: DetectFileType(relPath),
		})
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- Result{Error: err}:
		case <-ctx.Done():
		}
	}
}

func emit(ctx context.Context, results chan<- Result, f *FileInfo) error {
	select {
	case results <- Result{File: f}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scanner) excludeDir(relPath, absRoot string, opts Options) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDir(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchDir(relPath, pattern) {
			return true
		}
	}
	if opts.RespectGitignore && s.ignored(relPath, absRoot, true) {
		return true
	}
	return false
}

func (s *Scanner) excludeFile(relPath, absRoot string, opts Options) bool {
	base := filepath.Base(relPath)

	for _, pattern := range sensitivePatterns {
		if matchFile(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range defaultExcludeFiles {
		if matchFile(base, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matchFile(base, relPath, pattern) {
			return true
		}
	}
	if opts.RespectGitignore && s.ignored(relPath, absRoot, false) {
		return true
	}
	return false
}

// matchDir matches a directory path against an exclusion pattern.
func matchDir(relPath, pattern string) bool {
	sep := string(filepath.Separator)

	if strings.HasPrefix(pattern, "**/") {
		name := strings.TrimSuffix(strings.TrimPrefix(pattern, "**/"), "/**")
		for _, part := range strings.Split(relPath, sep) {
			if part == name {
				return true
			}
		}
		return false
	}

	prefix := strings.TrimSuffix(pattern, "/**")
	return relPath == prefix || strings.HasPrefix(relPath, prefix+sep)
}

// matchFile matches a file against an exclusion pattern. Supported forms:
// dir/** prefixes, **/name or **/*.ext suffixes, *mid*, prefix* and *suffix
// globs on the base name, and exact base-name matches.
func matchFile(base, relPath, pattern string) bool {
	sep := string(filepath.Separator)

	if strings.HasSuffix(pattern, "/**") && !strings.HasPrefix(pattern, "**/") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return strings.HasPrefix(relPath, prefix+sep)
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		if strings.HasPrefix(suffix, "*.") {
			return strings.HasSuffix(base, strings.TrimPrefix(suffix, "*"))
		}
		for _, part := range strings.Split(relPath, sep) {
			if part == suffix {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1 {
		mid := strings.Trim(pattern, "*")
		return strings.Contains(strings.ToLower(base), strings.ToLower(mid))
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(base, strings.TrimPrefix(pattern, "*"))
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(base, strings.TrimSuffix(pattern, "*"))
	}
	return base == pattern
}

// isBinary sniffs the first 512 bytes for a null byte.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

// ignored walks the directory chain from the root to the entry, consulting
// every .gitignore along the way.
func (s *Scanner) ignored(relPath, absRoot string, isDir bool) bool {
	if m := s.matcherFor(absRoot, ""); m != nil && m.Match(relPath, isDir) {
		return true
	}

	dir := absRoot
	base := ""
	for _, part := range strings.Split(filepath.Dir(relPath), string(filepath.Separator)) {
		if part == "." {
			continue
		}
		dir = filepath.Join(dir, part)
		base = filepath.Join(base, part)
		if m := s.matcherFor(dir, base); m != nil && m.Match(relPath, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) matcherFor(dir, base string) *gitignore.Matcher {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	matcher = gitignore.New()
	if err := matcher.AddFromFile(path, base); err != nil {
		return nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, matcher)
	s.cacheMu.Unlock()
	return matcher
}

// InvalidateGitignoreCache drops cached matchers. Called by the watch loop
// when a .gitignore file changes.
func (s *Scanner) InvalidateGitignoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gitignoreCache.Purge()
}

var defaultExcludeDirs = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/.ssh/**",
	"**/.aws/**",
}

var defaultExcludeFiles = []string{
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/go.sum",
}

// sensitivePatterns are never indexed regardless of configuration.
var sensitivePatterns = []string{
	".env",
	".env*",
	"*.pem",
	"*.key",
	"*.p12",
	"*credentials*",
	"*secrets*",
	"*password*",
	".netrc",
	".npmrc",
	"id_rsa",
	"id_ed25519",
}
