// Package watcher reports debounced changes to Noir sources and manifests.
package watcher

import "context"

// FileWatcher monitors a workspace for changes with debouncing.
type FileWatcher interface {
	// Start begins watching, calling callback with each debounced batch of
	// changed files. The callback runs on the watch goroutine; events that
	// arrive while it runs are batched into the next call.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources. It is safe to call
	// more than once.
	Stop() error
}
