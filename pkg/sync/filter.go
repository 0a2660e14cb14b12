package sync

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/spf13/afero"

	"github.com/sidkik/shipyard/pkg/config"
	"github.com/sidkik/shipyard/pkg/errors"
)

// Filter decides which paths are excluded from syncing.
type Filter struct {
	// Patterns are the patterns from the ignore file, as written by the
	// user.
	Patterns []string

	// Patterns that end in a slash only apply to directories, so files and
	// directories are matched separately.
	fileMatcher, dirMatcher *patternmatcher.PatternMatcher
}

// LoadIgnoreFile reads the patterns in the ignore file at `path`. A missing
// ignore file is the same as an empty one.
func LoadIgnoreFile(path string) ([]string, error) {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithContext(err, "read")
	}

	// The file uses rsync's exclude-from syntax rather than .dockerignore
	// syntax, since rsync consumes it as well. In particular, a leading slash
	// is significant.
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithContext(err, "parse")
	}
	return patterns, nil
}

// NewFilter creates a filter that excludes the given patterns, as well as the
// patterns that are always excluded.
func NewFilter(patterns []string) (Filter, error) {
	fileMatcher, err := newMatcher(patterns, false)
	if err != nil {
		return Filter{}, errors.WithContext(err, "compile patterns")
	}

	dirMatcher, err := newMatcher(patterns, true)
	if err != nil {
		return Filter{}, errors.WithContext(err, "compile patterns")
	}
	return Filter{Patterns: patterns, fileMatcher: fileMatcher, dirMatcher: dirMatcher}, nil
}

func newMatcher(patterns []string, forDir bool) (*patternmatcher.PatternMatcher, error) {
	// rsync applies the first matching pattern, while patternmatcher applies
	// the last one, so the user's patterns are added in reverse. The patterns
	// that are always excluded go last so that nothing can re-include them.
	var matcherPatterns []string
	for i := len(patterns) - 1; i >= 0; i-- {
		if p := toMatcherPattern(patterns[i], forDir); p != "" {
			matcherPatterns = append(matcherPatterns, p)
		}
	}
	for _, pattern := range config.AlwaysExcluded {
		matcherPatterns = append(matcherPatterns, toMatcherPattern(pattern, forDir))
	}
	return patternmatcher.New(matcherPatterns)
}

// Excluded returns whether `path` should not be synced. The path is relative
// to the project root, and `isDir` is whether it's a directory. Children of
// excluded directories are excluded too.
func (f Filter) Excluded(path string, isDir bool) bool {
	matcher := f.fileMatcher
	if isDir {
		matcher = f.dirMatcher
	}
	excluded, err := matcher.MatchesOrParentMatches(filepath.Clean(path))
	return err == nil && excluded
}

// toMatcherPattern converts an rsync exclude pattern into the patternmatcher
// syntax. A leading slash anchors the pattern to the project root, and any
// other pattern matches the end of a path at any depth, even if it contains
// a slash. A trailing slash only matches directories: for files, it becomes a
// match on the directory's contents. A "+ " prefix re-includes paths, and a
// "- " prefix is the same as no prefix.
func toMatcherPattern(pattern string, forDir bool) string {
	pattern = strings.TrimSpace(pattern)
	include := strings.HasPrefix(pattern, "+ ")
	pattern = strings.TrimPrefix(strings.TrimPrefix(pattern, "+ "), "- ")
	dirOnly := strings.HasSuffix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")
	if pattern == "" || pattern == "!" {
		return ""
	}

	if strings.HasPrefix(pattern, "/") {
		pattern = strings.TrimPrefix(pattern, "/")
	} else {
		pattern = "**/" + pattern
	}

	if dirOnly && !forDir {
		pattern += "/**"
	}

	if include {
		return "!" + pattern
	}
	return pattern
}
