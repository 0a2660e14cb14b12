package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// FileAttributes contains some metadata used to compare whether two files are
// equal.
type FileAttributes struct {
	// ContentsHash is the sha512 hash of the contents of the file.
	ContentsHash string

	// Mode is the file mode of the file.
	Mode os.FileMode

	// ModTime is the time of the last file modification.
	ModTime time.Time
}

// Version returns a string representing the contents of the metadata.
func (f FileAttributes) Version() string {
	hasher := sha512.New()
	fmt.Fprintf(hasher, "ContentsHash: %s\n", f.ContentsHash)
	fmt.Fprintf(hasher, "Mode: %#o\n", f.Mode)
	fmt.Fprintf(hasher, "ModTime: %d\n", f.ModTime.UnixNano())
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}

// Equal returns whether two files are equal (i.e. whether a sync is necessary).
func (f FileAttributes) Equal(otherFile FileAttributes) bool {
	return f.ContentsHash == otherFile.ContentsHash &&
		f.Mode == otherFile.Mode &&
		f.ModTime.Equal(otherFile.ModTime)
}

// A SourceFile is a file in the artifact set that will be synced.
type SourceFile struct {
	// ContentsPath is the path to the file that can be opened by the
	// shipyard process.
	ContentsPath string

	// SyncPath is the path relative to the project root. The file ends up at
	// the same path relative to the remote directory.
	SyncPath string

	FileAttributes
}

// LocalSnapshot is a collection of all the files that will be synced, keyed
// by SyncPath.
type LocalSnapshot map[string]SourceFile

// Version returns a string representing the contents of all the files in the
// snapshot. It doesn't depend on the iteration order of the map.
func (local LocalSnapshot) Version() string {
	var paths []string
	for path := range local {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	hasher := sha512.New()
	for _, path := range paths {
		fmt.Fprintf(hasher, "%s: %s\n", path, local[path].Version())
	}
	return base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}

// Diff returns the paths that were added or changed since `previous`, and the
// paths that no longer exist.
func (local LocalSnapshot) Diff(previous LocalSnapshot) (changed []string, removed []string) {
	for path, exp := range local {
		prev, ok := previous[path]
		if !ok || !prev.FileAttributes.Equal(exp.FileAttributes) {
			changed = append(changed, path)
		}
	}

	for path := range previous {
		if _, ok := local[path]; !ok {
			removed = append(removed, path)
		}
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return
}

// SnapshotArtifacts returns the information on the files in `artifacts` that
// aren't excluded by `filter`. Artifacts are relative to `root`.
func SnapshotArtifacts(root string, artifacts []string, filter Filter) (LocalSnapshot, error) {
	files := LocalSnapshot{}
	for _, artifact := range artifacts {
		toSnapshot := filepath.Join(root, artifact)
		fi, err := fs.Stat(toSnapshot)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileNotFound{Path: toSnapshot}
			}
			return nil, errors.WithContext(err, "open path")
		}

		if filter.Excluded(artifact, fi.IsDir()) {
			log.WithField("artifact", artifact).Debug("Skipping excluded artifact")
			continue
		}

		if !fi.IsDir() {
			sf, err := sourceFile(toSnapshot, artifact, fi)
			if err != nil {
				return nil, errors.WithContext(err, fmt.Sprintf("snapshot %q", toSnapshot))
			}
			files[sf.SyncPath] = sf
			continue
		}

		err = afero.Walk(fs, toSnapshot, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			relativePath, err := filepath.Rel(toSnapshot, path)
			if err != nil || strings.HasPrefix(relativePath, "..") {
				return errors.WithContext(err, "normalized path")
			}
			syncPath := filepath.Join(artifact, relativePath)

			if filter.Excluded(syncPath, fi.IsDir()) {
				if fi.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Empty directories are created by rsync, but they have no
			// contents to compare.
			if fi.IsDir() {
				return nil
			}

			sf, err := sourceFile(path, syncPath, fi)
			if err != nil {
				return err
			}
			files[sf.SyncPath] = sf
			return nil
		})
		if err != nil {
			return nil, errors.WithContext(err, fmt.Sprintf("walk %q", toSnapshot))
		}
	}
	return files, nil
}

func sourceFile(path, syncPath string, fi os.FileInfo) (SourceFile, error) {
	contentsHash, err := HashFile(path)
	if err != nil {
		return SourceFile{}, err
	}

	return SourceFile{
		ContentsPath: path,
		SyncPath:     syncPath,
		FileAttributes: FileAttributes{
			ContentsHash: contentsHash,
			Mode:         fi.Mode(),
			ModTime:      fi.ModTime(),
		},
	}, nil
}

// HashFile returns the sha512 hash of the file at the given path.
func HashFile(path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}
