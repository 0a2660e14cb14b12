package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/errors"
	"github.com/sidkik/shipyard/pkg/sync"
)

var fs = afero.NewOsFs()

// Watcher sends an event on C whenever a watched file changes.
type Watcher struct {
	C <-chan struct{}

	watcher *fsnotify.Watcher
}

// Watch watches for changes to the artifacts that aren't excluded by
// `filter`. Artifacts are relative to `root`.
func Watch(root string, artifacts []string, filter sync.Filter) (*Watcher, error) {
	pathsToWatch, err := getPathsToWatch(root, artifacts, filter)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	go logErrors(watcher.Errors)
	return &Watcher{C: combineUpdates(watcher.Events), watcher: watcher}, nil
}

// Close stops watching. No events are sent after Close returns.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func logErrors(errs <-chan error) {
	for err := range errs {
		log.WithError(err).Debug("File watcher error")
	}
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

func getPathsToWatch(root string, artifacts []string, filter sync.Filter) (paths []string, err error) {
	for _, artifact := range artifacts {
		path := filepath.Join(root, artifact)
		fi, err := fs.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileNotFound{Path: path}
			}
			return nil, errors.WithContext(err, "stat")
		}

		if filter.Excluded(artifact, fi.IsDir()) {
			continue
		}

		paths = append(paths, path)
		if fi.Mode().IsDir() {
			// Because fsnotify doesn't watch directories recursively, we walk
			// the directory's contents and add all subdirectories and files.
			subpaths, err := getChildren(artifact, path, filter)
			if err != nil {
				return nil, errors.WithContext(err, "get subdirs")
			}
			paths = append(paths, subpaths...)
		} else {
			// If the path is a file, then watch its parent directory as well
			// as the file itself. This way, if the file is removed and
			// re-added we'll notice.
			// This will also cause triggers when other files in the directory
			// are created or removed, but this is fine since the sync will
			// just be a no-op.
			paths = append(paths, filepath.Dir(path))
		}
	}

	return paths, nil
}

func getChildren(artifact, dir string, filter sync.Filter) (paths []string, err error) {
	err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if path == dir {
			return nil
		}

		// Normalize the path to be relative to the project root before
		// applying the filter.
		relativePath, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(relativePath, "..") {
			// This shouldn't happen because `path` is always a child of `dir`.
			return errors.WithContext(err, "normalized path")
		}

		if filter.Excluded(filepath.Join(artifact, relativePath), fi.IsDir()) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	return paths, err
}
