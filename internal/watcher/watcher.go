// Package watcher follows file system changes for watch mode. Raw fsnotify
// events are filtered against ignore patterns and debounced into batches so
// a burst of writes triggers one rescan instead of many.
package watcher

import (
	"time"
)

// Operation is the kind of file system change.
type Operation int

const (
	// OpCreate means a new file or directory appeared.
	OpCreate Operation = iota
	// OpModify means an existing file changed.
	OpModify
	// OpDelete means a file or directory disappeared.
	OpDelete
	// OpRename means a file or directory was renamed away.
	OpRename
	// OpGitignoreChange means a .gitignore file changed; the scan pipeline
	// must invalidate cached matchers and reconcile.
	OpGitignoreChange
	// OpConfigChange means the project config file changed.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change.
type FileEvent struct {
	// Path is relative to the watched root.
	Path string

	// Operation is the kind of change.
	Operation Operation

	// IsDir marks directory events.
	IsDir bool

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Options configures a watcher.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	DebounceWindow time.Duration

	// EventBufferSize is the batch channel depth.
	EventBufferSize int

	// IgnorePatterns filter events, using gitignore syntax.
	IgnorePatterns []string
}

// WithDefaults fills zero values with defaults.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow == 0 {
		o.DebounceWindow = 500 * time.Millisecond
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = 1000
	}
	return o
}
